// Package nlu implements rule-based natural language understanding for the
// weather and calendar domains: lexical normalization, intent classification,
// entity extraction, and temporal resolution. Everything in this package is
// stateless and deterministic; conversation state lives in internal/dialog.
package nlu

// Intent is the classified purpose of an utterance. Exactly one intent is
// assigned per turn.
type Intent string

const (
	IntentWeatherQuery      Intent = "weather_query"
	IntentRainQuery         Intent = "rain_query"
	IntentAppointmentQuery  Intent = "appointment_query"
	IntentAppointmentCreate Intent = "appointment_create"
	IntentAppointmentUpdate Intent = "appointment_update"
	IntentAppointmentDelete Intent = "appointment_delete"

	// IntentFollowup marks a context-only continuation of the previous turn's
	// domain. The classifier never emits it directly; the dialog tracker
	// reclassifies IntentUnknown when the conversation context supports it.
	IntentFollowup Intent = "followup"

	IntentUnknown Intent = "unknown"
)

// WeatherFamily reports whether the intent belongs to the weather domain.
func (i Intent) WeatherFamily() bool {
	return i == IntentWeatherQuery || i == IntentRainQuery
}

// AppointmentFamily reports whether the intent belongs to the calendar domain.
func (i Intent) AppointmentFamily() bool {
	switch i {
	case IntentAppointmentQuery, IntentAppointmentCreate, IntentAppointmentUpdate, IntentAppointmentDelete:
		return true
	}
	return false
}

// Slot names the entity fields an intent may carry.
type Slot string

const (
	SlotLocation       Slot = "location"
	SlotDate           Slot = "date" // always absolute, ISO form YYYY-MM-DD
	SlotTime           Slot = "time" // 24-hour HH:MM
	SlotTitle          Slot = "title"
	SlotTargetField    Slot = "target_field"
	SlotTargetValue    Slot = "target_value"
	SlotAppointmentRef Slot = "appointment_ref"
)

// Entities maps slot names to normalized values. Absence of a slot means the
// extractor found no valid span; values are never empty strings.
type Entities map[Slot]string

// Get returns the slot value and whether it is present.
func (e Entities) Get(s Slot) (string, bool) {
	v, ok := e[s]
	return v, ok
}

// Set stores a slot value, ignoring empty values so the "absence = key
// omitted" invariant holds.
func (e Entities) Set(s Slot, v string) {
	if v == "" {
		return
	}
	e[s] = v
}

// Clone returns an independent copy so resolved entities never alias the
// extractor's output.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Result is the combined output of classification and extraction for one
// utterance, before any context resolution.
type Result struct {
	Intent   Intent
	Entities Entities

	// AmbiguousDate is set when the utterance contained a date-like span that
	// matched no temporal rule. No default date is ever fabricated.
	AmbiguousDate bool
}
