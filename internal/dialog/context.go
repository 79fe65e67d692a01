package dialog

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mkempf/voicedesk/internal/nlu"
)

// Utterance is one raw user input with its position in the session.
// Immutable once created.
type Utterance struct {
	Text       string
	TurnIndex  int
	CapturedAt time.Time
}

// Turn is the immutable record of one processed utterance: what was said,
// what was understood, and what was answered. Failed turns carry the
// failure kind so they never silently satisfy a later reference.
type Turn struct {
	Utterance Utterance
	Intent    nlu.Intent
	Entities  nlu.Entities
	Response  string
	Failure   string // "" on success, else a dialog.FailureKind marker
}

// Resolved reports whether the turn's references and required entities were
// resolved. Collaborator failures happen after resolution and still count
// as resolved for context purposes.
func (t Turn) Resolved() bool {
	return t.Failure == "" || t.Failure == "collaborator_error"
}

// Context is the per-session conversation state. One session owns exactly
// one Context; it is created at session start, mutated only by the Tracker
// and the orchestrator within a turn, and discarded at session end.
type Context struct {
	SessionID string

	lastLocation      string
	lastDate          string // absolute ISO date, never a relative expression
	lastIntent        nlu.Intent
	lastAppointmentID *int

	history []Turn
}

// NewContext creates empty conversation state for a session.
func NewContext(sessionID string) *Context {
	return &Context{SessionID: sessionID}
}

// LastLocation returns the most recently resolved location, if any.
func (c *Context) LastLocation() (string, bool) {
	return c.lastLocation, c.lastLocation != ""
}

// LastDate returns the most recently resolved absolute date, if any.
func (c *Context) LastDate() (string, bool) {
	return c.lastDate, c.lastDate != ""
}

// LastIntent returns the intent of the most recent resolved turn.
func (c *Context) LastIntent() nlu.Intent {
	if c.lastIntent == "" {
		return nlu.IntentUnknown
	}
	return c.lastIntent
}

// AppointmentID returns the identifier of the most recently created
// appointment, if one exists and has not been deleted.
func (c *Context) AppointmentID() (int, bool) {
	if c.lastAppointmentID == nil {
		return 0, false
	}
	return *c.lastAppointmentID, true
}

// SetAppointmentID records the identifier returned by the calendar
// collaborator. Only the orchestrator calls this; the tracker merely
// reserves the slot.
func (c *Context) SetAppointmentID(id int) {
	c.lastAppointmentID = &id
}

// ClearAppointmentID forgets the remembered appointment. Called immediately
// after a successful delete; the identifier is never reused.
func (c *Context) ClearAppointmentID() {
	c.lastAppointmentID = nil
}

// History returns the recorded turns in chronological order. The slice is
// shared for efficiency; callers must not mutate it.
func (c *Context) History() []Turn {
	return c.history
}

// TurnCount is the number of turns processed so far, which is also the
// index of the next turn.
func (c *Context) TurnCount() int {
	return len(c.history)
}

// Tracker resolves references in extracted entities against conversation
// context and maintains that context across turns. It never calls external
// systems.
type Tracker struct {
	log *slog.Logger
}

// NewTracker creates a tracker. A nil logger disables logging.
func NewTracker(log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Tracker{log: log}
}

// Resolve applies context to a parsed utterance: reclassifies bare
// continuations as followups, substitutes remembered values for missing
// references, and validates required slots. The input result is not
// mutated. On error the returned result still carries the (partially)
// resolved state so the failed turn can be recorded faithfully.
func (t *Tracker) Resolve(c *Context, res nlu.Result) (nlu.Result, error) {
	out := res
	out.Entities = res.Entities.Clone()

	if res.AmbiguousDate {
		return out, fmt.Errorf("%w: date expression did not match any rule", ErrAmbiguousDate)
	}

	if out.Intent == nlu.IntentUnknown {
		if t.continuesWeatherTopic(c, out.Entities) {
			out.Intent = nlu.IntentFollowup
			t.log.Debug("reclassified unknown as followup",
				"session", c.SessionID, "last_intent", c.LastIntent())
		} else {
			return out, ErrIntentNotRecognized
		}
	}

	switch t.Effective(c, out.Intent) {
	case nlu.IntentWeatherQuery, nlu.IntentRainQuery:
		if err := t.resolveLocation(c, out.Entities); err != nil {
			return out, err
		}

	case nlu.IntentAppointmentQuery:
		// Read-only intent: no reference resolution, no state change.

	case nlu.IntentAppointmentCreate:
		for _, slot := range []nlu.Slot{nlu.SlotTitle, nlu.SlotDate} {
			if _, ok := out.Entities.Get(slot); !ok {
				return out, fmt.Errorf("%w: %s", ErrEntityMissing, slot)
			}
		}

	case nlu.IntentAppointmentUpdate:
		for _, slot := range []nlu.Slot{nlu.SlotTargetField, nlu.SlotTargetValue} {
			if _, ok := out.Entities.Get(slot); !ok {
				return out, fmt.Errorf("%w: %s", ErrEntityMissing, slot)
			}
		}
		// Without an explicit date the remembered appointment is the target;
		// with a date, lookup is delegated to the calendar collaborator by
		// the orchestrator.
		if _, hasDate := out.Entities.Get(nlu.SlotDate); !hasDate {
			if id, ok := c.AppointmentID(); ok {
				out.Entities.Set(nlu.SlotAppointmentRef, strconv.Itoa(id))
			}
		}

	case nlu.IntentAppointmentDelete:
		id, ok := c.AppointmentID()
		if !ok {
			return out, fmt.Errorf("%w: no previously created appointment in this conversation", ErrReferenceUnresolved)
		}
		out.Entities.Set(nlu.SlotAppointmentRef, strconv.Itoa(id))
	}

	return out, nil
}

// Effective maps a followup onto the intent it continues. All other
// intents map to themselves.
func (t *Tracker) Effective(c *Context, intent nlu.Intent) nlu.Intent {
	if intent == nlu.IntentFollowup {
		return c.LastIntent()
	}
	return intent
}

// continuesWeatherTopic decides whether an unclassified utterance is a
// continuation of a weather conversation: the previous resolved intent was
// in the weather family and the new utterance carries a location or date
// cue ("what about in Frankfurt").
func (t *Tracker) continuesWeatherTopic(c *Context, ents nlu.Entities) bool {
	if !c.LastIntent().WeatherFamily() {
		return false
	}
	_, hasLoc := ents.Get(nlu.SlotLocation)
	_, hasDate := ents.Get(nlu.SlotDate)
	return hasLoc || hasDate
}

// resolveLocation substitutes the remembered location when the utterance
// has none ("will it rain there?").
func (t *Tracker) resolveLocation(c *Context, ents nlu.Entities) error {
	if _, ok := ents.Get(nlu.SlotLocation); ok {
		return nil
	}
	loc, ok := c.LastLocation()
	if !ok {
		return fmt.Errorf("%w: no location in this utterance or earlier in the conversation", ErrReferenceUnresolved)
	}
	ents.Set(nlu.SlotLocation, loc)
	return nil
}

// Append records a processed turn in history. Every turn is appended,
// successful or not; only resolved turns update the last-value slots, so a
// failed turn can never satisfy a later reference.
func (t *Tracker) Append(c *Context, turn Turn) {
	c.history = append(c.history, turn)

	if !turn.Resolved() {
		return
	}

	if loc, ok := turn.Entities.Get(nlu.SlotLocation); ok {
		c.lastLocation = loc
	}
	if date, ok := turn.Entities.Get(nlu.SlotDate); ok {
		c.lastDate = date
	}
	if turn.Intent != nlu.IntentUnknown && turn.Intent != nlu.IntentFollowup {
		c.lastIntent = turn.Intent
	}
}
