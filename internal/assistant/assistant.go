// Package assistant implements the understanding orchestrator: it sequences
// normalization, classification, extraction, and context resolution for one
// turn at a time and renders the textual response.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkempf/voicedesk/internal/dialog"
	"github.com/mkempf/voicedesk/internal/metrics"
	"github.com/mkempf/voicedesk/internal/nlu"
)

// ResolutionResult is the structured outcome of one processed turn.
type ResolutionResult struct {
	Intent   nlu.Intent
	Entities nlu.Entities

	// Ambiguous is set when a date-like expression matched no temporal rule.
	Ambiguous bool

	// UnresolvedReference describes a reference with no antecedent in
	// context, empty when resolution succeeded.
	UnresolvedReference string

	// Response is the rendered reply, also present for failed turns (as a
	// clarification prompt).
	Response string

	// Failure is the stable failure marker recorded in history, "" on
	// success.
	Failure string
}

// Config wires an Assistant. Weather and Calendar are required; the rest is
// optional.
type Config struct {
	SessionID  string
	Weather    WeatherProvider
	Calendar   CalendarProvider
	Transcript TurnLog
	Metrics    *metrics.Collector
	Logger     *slog.Logger

	// Now supplies the reference instant per turn; defaults to time.Now.
	Now func() time.Time
}

// Assistant processes a single session, one utterance at a time. It owns the
// session's ConversationContext; instantiate one Assistant per session.
// Processing is strictly sequential, there is no overlapping turn handling.
type Assistant struct {
	convo      *dialog.Context
	tracker    *dialog.Tracker
	weather    WeatherProvider
	calendar   CalendarProvider
	transcript TurnLog
	metrics    *metrics.Collector
	log        *slog.Logger
	now        func() time.Time
}

// New creates an assistant with fresh conversation state.
func New(cfg Config) *Assistant {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Assistant{
		convo:      dialog.NewContext(cfg.SessionID),
		tracker:    dialog.NewTracker(cfg.Logger),
		weather:    cfg.Weather,
		calendar:   cfg.Calendar,
		transcript: cfg.Transcript,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
}

// Context exposes the session's conversation state, mainly for inspection
// in tests and the CLI.
func (a *Assistant) Context() *dialog.Context {
	return a.convo
}

// Greeting is the session-opening response.
func (a *Assistant) Greeting() string {
	return "Hello! I can help you with weather information and calendar management. How can I assist you today?"
}

// ProcessTurn runs the full understanding pipeline for one utterance and
// returns the structured result. It never returns an error: every failure
// kind is recovered at the turn boundary, recorded in history, and answered
// with a clarification prompt so the session continues.
func (a *Assistant) ProcessTurn(ctx context.Context, text string) ResolutionResult {
	now := a.now()
	utterance := dialog.Utterance{
		Text:       text,
		TurnIndex:  a.convo.TurnCount(),
		CapturedAt: now,
	}

	parsed := nlu.Parse(text, now)
	resolved, err := a.tracker.Resolve(a.convo, parsed)

	var response string
	if err == nil {
		response, err = a.dispatch(ctx, &resolved, now)
	}

	failure := dialog.FailureKind(err)
	if err != nil {
		response = failurePrompt(err)
		a.log.Info("turn failed",
			"session", a.convo.SessionID,
			"turn", utterance.TurnIndex,
			"intent", resolved.Intent,
			"failure", failure,
			"error", err)
	}

	turn := dialog.Turn{
		Utterance: utterance,
		Intent:    resolved.Intent,
		Entities:  resolved.Entities,
		Response:  response,
		Failure:   failure,
	}
	a.tracker.Append(a.convo, turn)

	if a.metrics != nil {
		a.metrics.RecordTurn(string(resolved.Intent), failure)
	}
	if a.transcript != nil {
		if logErr := a.transcript.Append(ctx, a.convo.SessionID, turn); logErr != nil {
			a.log.Warn("transcript append failed", "session", a.convo.SessionID, "error", logErr)
		}
	}

	result := ResolutionResult{
		Intent:   resolved.Intent,
		Entities: resolved.Entities,
		Response: response,
		Failure:  failure,
	}
	if errors.Is(err, dialog.ErrAmbiguousDate) {
		result.Ambiguous = true
	}
	if errors.Is(err, dialog.ErrReferenceUnresolved) {
		result.UnresolvedReference = err.Error()
	}
	return result
}

// dispatch routes a resolved turn to its intent handler. Followups continue
// the previous turn's intent.
func (a *Assistant) dispatch(ctx context.Context, resolved *nlu.Result, now time.Time) (string, error) {
	switch a.tracker.Effective(a.convo, resolved.Intent) {
	case nlu.IntentWeatherQuery:
		return a.handleWeatherQuery(ctx, resolved.Entities)
	case nlu.IntentRainQuery:
		return a.handleRainQuery(ctx, resolved.Entities)
	case nlu.IntentAppointmentQuery:
		return a.handleAppointmentQuery(ctx, now)
	case nlu.IntentAppointmentCreate:
		return a.handleAppointmentCreate(ctx, resolved.Entities)
	case nlu.IntentAppointmentUpdate:
		return a.handleAppointmentUpdate(ctx, resolved.Entities, now)
	case nlu.IntentAppointmentDelete:
		return a.handleAppointmentDelete(ctx, resolved.Entities)
	default:
		return "", dialog.ErrIntentNotRecognized
	}
}

func (a *Assistant) observe(op string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordCollaborator(op, time.Since(start))
	}
}
