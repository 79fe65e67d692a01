package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire form for resolved dates. Only absolute dates in
// this form ever leave the resolver.
const DateLayout = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var (
	// "12th of january", "12 january"
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?(?: of)? ([a-z]+)\b`)
	// "january 12th"
	monthDayRe = regexp.MustCompile(`\b([a-z]+) (\d{1,2})(?:st|nd|rd|th)?\b`)
	// "12/01/2026", "12-01-26"
	numericRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)

	// A span that looks temporal even when no rule resolves it, e.g.
	// "on the 32nd of januember". Only ordinals and numeric dates count;
	// bare prose must never trip this.
	dateCueRe = regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)\b`)
)

// ResolveDate converts a temporal expression inside normalized text into an
// absolute calendar date relative to the reference instant. Rules are tried
// in priority order, first match wins:
//
//  1. "today"                -> reference date
//  2. "tomorrow"             -> reference date + 1 day
//  3. weekday name           -> next occurrence strictly after the reference
//     date (the same weekday resolves a full week ahead, never same-day)
//  4. explicit day and month -> nearest future occurrence (next year if the
//     date already passed this year)
//
// The second return is false when no rule matched; no default is fabricated.
func ResolveDate(text string, ref time.Time) (time.Time, bool) {
	tokens := strings.Fields(text)
	refDate := midnight(ref)

	for _, tok := range tokens {
		if tok == "today" {
			return refDate, true
		}
	}
	for _, tok := range tokens {
		if tok == "tomorrow" {
			return refDate.AddDate(0, 0, 1), true
		}
	}
	for _, tok := range tokens {
		if wd, ok := weekdays[tok]; ok {
			return NextWeekday(ref, wd), true
		}
	}
	if d, ok := resolveExplicit(text, refDate); ok {
		return d, true
	}
	return time.Time{}, false
}

// HasDateCue reports whether the text contains a span that looks like a date
// expression (ordinals, numeric dates) regardless of whether ResolveDate can
// resolve it. A cue without a resolution means the date is ambiguous rather
// than absent.
func HasDateCue(text string) bool {
	return dateCueRe.MatchString(text) || numericRe.MatchString(text)
}

// NextWeekday returns the next occurrence of the weekday strictly after the
// reference date. If the reference day already is that weekday, the result
// is a full week ahead, never the same day.
func NextWeekday(ref time.Time, wd time.Weekday) time.Time {
	ahead := (int(wd) - int(ref.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return midnight(ref).AddDate(0, 0, ahead)
}

// resolveExplicit tries every candidate span per pattern, not just the
// first: an earlier clock-like span ("at 2 pm") must not shadow a real date
// later in the utterance.
func resolveExplicit(text string, refDate time.Time) (time.Time, bool) {
	for _, m := range dayMonthRe.FindAllStringSubmatch(text, -1) {
		if d, ok := buildDate(m[2], m[1], refDate); ok {
			return d, true
		}
	}
	for _, m := range monthDayRe.FindAllStringSubmatch(text, -1) {
		if d, ok := buildDate(m[1], m[2], refDate); ok {
			return d, true
		}
	}
	for _, m := range numericRe.FindAllStringSubmatch(text, -1) {
		if d, ok := buildNumericDate(m[1], m[2], m[3], refDate); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// buildDate assembles day-of-month + month name into the nearest future
// occurrence relative to the reference date.
func buildDate(monthName, dayStr string, refDate time.Time) (time.Time, bool) {
	month, ok := months[monthName]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || !validDayOfMonth(day, month) {
		return time.Time{}, false
	}

	d := time.Date(refDate.Year(), month, day, 0, 0, 0, 0, refDate.Location())
	if d.Before(refDate) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

func buildNumericDate(dayStr, monthStr, yearStr string, refDate time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(dayStr)
	monthNum, _ := strconv.Atoi(monthStr)
	year, _ := strconv.Atoi(yearStr)
	if year < 100 {
		year += 2000
	}
	if monthNum < 1 || monthNum > 12 || !validDayOfMonth(day, time.Month(monthNum)) {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(monthNum), day, 0, 0, 0, 0, refDate.Location()), true
}

func validDayOfMonth(day int, month time.Month) bool {
	if day < 1 || day > 31 {
		return false
	}
	switch month {
	case time.April, time.June, time.September, time.November:
		return day <= 30
	case time.February:
		return day <= 29
	}
	return true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDate renders a resolved date in the wire form used by entity slots
// and the calendar collaborator.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate is the inverse of FormatDate.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
