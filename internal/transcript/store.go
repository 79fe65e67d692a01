// Package transcript persists the append-only turn log to SQLite, giving
// the in-memory conversation history a durable audit trail. Failed turns
// are stored with their failure kind just like successful ones.
package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/mkempf/voicedesk/internal/dialog"
)

// Store writes turns to a SQLite database.
type Store struct {
	db      *sql.DB
	entropy *rand.Rand
}

// Record is one persisted turn.
type Record struct {
	ID        string
	SessionID string
	TurnIndex int
	Utterance string
	Intent    string
	Entities  map[string]string
	Response  string
	Failure   string
	CreatedAt time.Time
}

// Open opens or creates the transcript database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		turn_index  INTEGER NOT NULL,
		utterance   TEXT NOT NULL,
		intent      TEXT NOT NULL,
		entities    TEXT,
		response    TEXT,
		failure     TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn_index);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one processed turn. Turns are insert-only; nothing in this
// package updates or deletes them.
func (s *Store) Append(ctx context.Context, sessionID string, turn dialog.Turn) error {
	var entitiesJSON *string
	if len(turn.Entities) > 0 {
		b, err := json.Marshal(turn.Entities)
		if err != nil {
			return fmt.Errorf("marshal entities: %w", err)
		}
		js := string(b)
		entitiesJSON = &js
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, turn_index, utterance, intent, entities, response, failure, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.newID(),
		sessionID,
		turn.Utterance.TurnIndex,
		turn.Utterance.Text,
		string(turn.Intent),
		entitiesJSON,
		turn.Response,
		turn.Failure,
		turn.Utterance.CapturedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Session returns all recorded turns for a session in chronological order.
func (s *Store) Session(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, turn_index, utterance, intent, entities, response, failure, created_at
		FROM turns WHERE session_id = ? ORDER BY turn_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r            Record
			entitiesJSON sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TurnIndex, &r.Utterance, &r.Intent, &entitiesJSON, &r.Response, &r.Failure, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if entitiesJSON.Valid {
			if err := json.Unmarshal([]byte(entitiesJSON.String), &r.Entities); err != nil {
				return nil, fmt.Errorf("unmarshal entities: %w", err)
			}
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
