package nlu

import (
	"regexp"
	"time"
)

// rule pairs a compiled pattern with the intent it signals. Rules live in a
// slice, never a map: evaluation order is part of the contract.
type rule struct {
	pattern *regexp.Regexp
	intent  Intent
}

// rules is the full ordered rule table, evaluated top to bottom against
// normalized text; the first match wins regardless of match length or
// specificity. Rain rules precede the generic weather rules because rain
// queries are syntactically weather queries; the appointment family keeps
// delete and update ahead of the looser query and create patterns.
var rules = []rule{
	{regexp.MustCompile(`\bwill\b.*\brain\b`), IntentRainQuery},
	{regexp.MustCompile(`\bis\b.*\brain`), IntentRainQuery},
	{regexp.MustCompile(`\brain\b.*\bforecast\b`), IntentRainQuery},
	{regexp.MustCompile(`\bgoing\b.*\brain\b`), IntentRainQuery},

	{regexp.MustCompile(`\bwhat\b.*\b(weather|temperature|forecast)\b`), IntentWeatherQuery},
	{regexp.MustCompile(`\b(weather|temperature|forecast)\b.*\bbe\b`), IntentWeatherQuery},
	{regexp.MustCompile(`\bhow\b.*\b(weather|warm|cold|hot)\b`), IntentWeatherQuery},
	{regexp.MustCompile(`\b(tell|show)\b.*\bweather\b`), IntentWeatherQuery},

	{regexp.MustCompile(`\b(delete|remove|cancel)\b.*\b(appointment|meeting|event)s?\b`), IntentAppointmentDelete},
	{regexp.MustCompile(`\b(appointment|meeting|event)s?\b.*\b(delete|remove|cancel)\b`), IntentAppointmentDelete},

	{regexp.MustCompile(`\b(change|update|modify|edit)\b.*\b(appointment|meeting|event)\b`), IntentAppointmentUpdate},
	{regexp.MustCompile(`\b(move|reschedule)\b.*\b(appointment|meeting|event)\b`), IntentAppointmentUpdate},

	{regexp.MustCompile(`\b(where|when|what)\b.*\b(next|upcoming)\b.*\bappointment\b`), IntentAppointmentQuery},
	{regexp.MustCompile(`\b(show|tell|list)\b.*\b(appointment|meeting|event)s?\b`), IntentAppointmentQuery},
	{regexp.MustCompile(`\bdo\b.*\bhave\b.*\b(appointment|meeting)s?\b`), IntentAppointmentQuery},

	{regexp.MustCompile(`\b(add|create|schedule|make)\b.*\b(appointment|meeting|event)\b`), IntentAppointmentCreate},
	{regexp.MustCompile(`\bbook\b.*\b(appointment|meeting)\b`), IntentAppointmentCreate},
	// Catch-all for verb-less phrasings ("an appointment for tomorrow").
	// Last on purpose: anything with an explicit verb matched above.
	{regexp.MustCompile(`\b(appointment|meeting|event)\b.*\b(for|on|at)\b`), IntentAppointmentCreate},
}

// Classify matches normalized text against the ordered rule table. No match
// yields IntentUnknown; contextual reclassification to IntentFollowup is the
// dialog tracker's job, not the classifier's.
func Classify(norm string) Intent {
	if norm == "" {
		return IntentUnknown
	}
	for _, r := range rules {
		if r.pattern.MatchString(norm) {
			return r.intent
		}
	}
	return IntentUnknown
}

// Parse runs the full understanding pipeline for one utterance: normalize,
// classify, extract. The reference instant anchors relative temporal
// expressions. Parse is stateless; resolution against conversation history
// happens downstream.
func Parse(text string, ref time.Time) Result {
	norm := Normalize(text)
	intent := Classify(norm)
	ents, ambiguous := Extract(text, intent, ref)

	return Result{
		Intent:        intent,
		Entities:      ents,
		AmbiguousDate: ambiguous,
	}
}
