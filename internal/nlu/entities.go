package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ClockLayout is the wire form for extracted clock times (24-hour).
const ClockLayout = "15:04"

var (
	clockColonRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2}) ?(am|pm)?\b`)
	clockAmPmRe  = regexp.MustCompile(`\b(\d{1,2}) ?(am|pm)\b`)
	clockAtRe    = regexp.MustCompile(`\bat (\d{1,2})\b`)
)

// articles are skipped between a preposition and the location it marks.
var articles = map[string]bool{"the": true, "a": true, "an": true, "my": true}

// spanBreakers end a location or title span.
var spanBreakers = map[string]bool{
	"on": true, "in": true, "at": true, "for": true, "to": true, "from": true,
	"today": true, "tomorrow": true, "next": true, "this": true,
	"appointment": true, "meeting": true, "event": true,
}

// targetFields is the closed vocabulary of updatable appointment fields,
// keyed by the words users say for them.
var targetFields = map[string]string{
	"place":    "location",
	"location": "location",
	"time":     "time",
	"when":     "time",
	"title":    "title",
	"name":     "title",
}

// titleMarkers introduce an appointment title span.
var titleMarkers = map[string]bool{"titled": true, "called": true, "named": true}

// Extract scans an utterance for the slots the classified intent expects.
// It is deterministic and side-effect free, never consults conversation
// history, and omits any slot it cannot fill. The second return reports an
// ambiguous date: a date-like span was present but matched no temporal rule.
//
// Unknown intents still get location and date extraction so the dialog
// tracker can decide whether the turn continues the previous domain.
func Extract(text string, intent Intent, ref time.Time) (Entities, bool) {
	norm := Normalize(text)
	ents := Entities{}

	date, dateFound := ResolveDate(norm, ref)
	ambiguous := !dateFound && HasDateCue(norm)

	switch {
	case intent.WeatherFamily() || intent == IntentUnknown:
		ents.Set(SlotLocation, extractLocation(text))
		if dateFound {
			ents.Set(SlotDate, FormatDate(date))
		}

	case intent == IntentAppointmentCreate:
		ents.Set(SlotTitle, extractTitle(text))
		ents.Set(SlotLocation, extractLocation(text))
		ents.Set(SlotTime, extractClock(norm))
		if dateFound {
			ents.Set(SlotDate, FormatDate(date))
		}

	case intent == IntentAppointmentUpdate:
		ents.Set(SlotTargetField, extractTargetField(norm))
		ents.Set(SlotTargetValue, extractTargetValue(text, ents[SlotTargetField]))
		ents.Set(SlotTime, extractClock(norm))
		if dateFound {
			ents.Set(SlotDate, FormatDate(date))
		}

	case intent == IntentAppointmentDelete || intent == IntentAppointmentQuery:
		ents.Set(SlotAppointmentRef, extractAppointmentRef(norm))
		if dateFound {
			ents.Set(SlotDate, FormatDate(date))
		}
	}

	return ents, ambiguous
}

// extractLocation finds a prepositionally-marked place name: the span after
// "in" or "at", skipping articles, ending at the next marker word or
// non-alphabetic token. There is no gazetteer; any such span is a candidate.
// The result is title-cased for consistency.
func extractLocation(text string) string {
	raw := rawTokens(text)

	for i, tok := range raw {
		low := strings.ToLower(tok)
		if low != "in" && low != "at" {
			continue
		}
		if span := collectSpan(raw[i+1:], true); len(span) > 0 {
			return titleCase(span)
		}
	}
	return ""
}

// extractTitle captures the span between a title marker ("titled", "called",
// "named") and the next date/time marker, preserving the original casing.
func extractTitle(text string) string {
	raw := rawTokens(text)

	for i, tok := range raw {
		if !titleMarkers[strings.ToLower(tok)] {
			continue
		}
		if span := collectSpan(raw[i+1:], false); len(span) > 0 {
			return strings.Join(span, " ")
		}
	}
	return ""
}

// extractTargetField maps update vocabulary ("place", "time", "title", ...)
// onto the closed set of updatable appointment fields.
func extractTargetField(norm string) string {
	for _, tok := range strings.Fields(norm) {
		if field, ok := targetFields[tok]; ok {
			return field
		}
	}
	return ""
}

// extractTargetValue captures the span following the last standalone "to",
// preserving casing. Location values are title-cased like extracted
// locations so context comparisons stay consistent.
func extractTargetValue(text, targetField string) string {
	raw := rawTokens(text)

	last := -1
	for i, tok := range raw {
		if strings.EqualFold(tok, "to") {
			last = i
		}
	}
	if last == -1 || last == len(raw)-1 {
		return ""
	}

	span := raw[last+1:]
	if targetField == "location" {
		return titleCase(span)
	}
	return strings.Join(span, " ")
}

// extractClock parses an explicit clock expression ("2 pm", "14:30",
// "at 2") into 24-hour HH:MM form. Returns "" when none is present.
func extractClock(norm string) string {
	if m := clockColonRe.FindStringSubmatch(norm); m != nil {
		return formatClock(m[1], m[2], m[3])
	}
	if m := clockAmPmRe.FindStringSubmatch(norm); m != nil {
		return formatClock(m[1], "0", m[2])
	}
	if m := clockAtRe.FindStringSubmatch(norm); m != nil {
		return formatClock(m[1], "0", "")
	}
	return ""
}

func formatClock(hourStr, minStr, meridiem string) string {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return ""
	}
	minute, err := strconv.Atoi(minStr)
	if err != nil {
		return ""
	}

	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// extractAppointmentRef detects anaphoric references to an earlier
// appointment ("previously created", "that appointment"). The marker value
// is resolved against context by the dialog tracker, never here.
func extractAppointmentRef(norm string) string {
	if strings.Contains(norm, "previous") {
		return "previous"
	}
	hasAppt := strings.Contains(norm, "appointment") || strings.Contains(norm, "meeting") || strings.Contains(norm, "event")
	if hasAppt && (containsToken(norm, "that") || containsToken(norm, "it")) {
		return "previous"
	}
	return ""
}

// rawTokens splits the original text keeping case, trimming punctuation the
// same way the normalizer does so indices line up with normalized tokens.
func rawTokens(text string) []string {
	var tokens []string
	for _, f := range strings.Fields(text) {
		f = strings.Trim(f, punctuationCutset)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// collectSpan gathers tokens up to the next span breaker. When
// alphabeticOnly is set (locations), digit-bearing tokens also end the span
// and leading articles are skipped.
func collectSpan(tokens []string, alphabeticOnly bool) []string {
	var span []string
	for _, tok := range tokens {
		low := strings.ToLower(tok)
		if len(span) == 0 && articles[low] {
			continue
		}
		if spanBreakers[low] || weekdayOrMonth(low) {
			break
		}
		if alphabeticOnly && !isAlphabetic(tok) {
			break
		}
		span = append(span, tok)
		if alphabeticOnly && len(span) == 3 {
			break
		}
	}
	return span
}

func weekdayOrMonth(tok string) bool {
	if _, ok := weekdays[tok]; ok {
		return true
	}
	_, ok := months[tok]
	return ok
}

func isAlphabetic(tok string) bool {
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(tok) > 0
}

func containsToken(norm, want string) bool {
	for _, tok := range strings.Fields(norm) {
		if tok == want {
			return true
		}
	}
	return false
}

func titleCase(span []string) string {
	out := make([]string, len(span))
	for i, w := range span {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		out[i] = string(r)
	}
	return strings.Join(out, " ")
}
