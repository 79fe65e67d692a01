// Package dialog holds per-session conversation state and resolves
// context-dependent references ("there", "it", "previously created")
// against it. It is the only stateful part of the understanding engine.
package dialog

import "errors"

// Sentinel errors for turn resolution failures.
// Use errors.Is() to check for these errors in calling code. None of them
// is fatal to a session: the failing turn is recorded in history with its
// failure kind and the next utterance is accepted normally.
var (
	// ErrIntentNotRecognized indicates no classifier rule matched and no
	// context-based fallback applied. Surfaced to the user as a
	// clarification prompt.
	ErrIntentNotRecognized = errors.New("intent not recognized")

	// ErrEntityMissing indicates a required slot for the classified intent
	// was not extracted. Wrapped with the missing slot's name.
	ErrEntityMissing = errors.New("required entity missing")

	// ErrReferenceUnresolved indicates an anaphoric or implicit reference
	// has no valid antecedent in the conversation context.
	ErrReferenceUnresolved = errors.New("reference unresolved")

	// ErrAmbiguousDate indicates a temporal expression matched no
	// resolution rule. No default date is silently assumed.
	ErrAmbiguousDate = errors.New("ambiguous date expression")

	// ErrCollaborator indicates an external weather or calendar call failed
	// or returned malformed data. Wrapped around the transport error with a
	// domain-neutral message.
	ErrCollaborator = errors.New("collaborator failure")
)

// FailureKind maps a resolution error onto the stable marker stored in turn
// history. Returns "" for nil errors.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIntentNotRecognized):
		return "intent_not_recognized"
	case errors.Is(err, ErrEntityMissing):
		return "entity_missing"
	case errors.Is(err, ErrReferenceUnresolved):
		return "reference_unresolved"
	case errors.Is(err, ErrAmbiguousDate):
		return "ambiguous_date"
	case errors.Is(err, ErrCollaborator):
		return "collaborator_error"
	default:
		return "internal_error"
	}
}
