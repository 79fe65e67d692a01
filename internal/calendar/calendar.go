// Package calendar provides the client for the external calendar
// collaborator and the local appointment selection logic built on its
// responses.
package calendar

import (
	"fmt"
	"sort"
	"time"
)

// TimeLayout is the collaborator's timestamp form (minute precision, no
// zone).
const TimeLayout = "2006-01-02T15:04"

// Appointment is one calendar entry as the collaborator reports it.
type Appointment struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Start parses the appointment's start timestamp.
func (a Appointment) Start() (time.Time, error) {
	t, err := time.Parse(TimeLayout, a.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start time %q: %w", a.StartTime, err)
	}
	return t, nil
}

// StartsOn reports whether the appointment starts on the given calendar
// date.
func (a Appointment) StartsOn(date time.Time) bool {
	start, err := a.Start()
	if err != nil {
		return false
	}
	y1, m1, d1 := start.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Next selects the upcoming appointment: the entry with the minimum start
// time strictly after now. Entries with unparsable start times are skipped.
// This selection is computed locally, never by the collaborator.
func Next(appointments []Appointment, now time.Time) (Appointment, bool) {
	var upcoming []Appointment
	for _, a := range appointments {
		start, err := a.Start()
		if err != nil {
			continue
		}
		if start.After(now) {
			upcoming = append(upcoming, a)
		}
	}
	if len(upcoming) == 0 {
		return Appointment{}, false
	}

	sort.Slice(upcoming, func(i, j int) bool {
		si, _ := upcoming[i].Start()
		sj, _ := upcoming[j].Start()
		return si.Before(sj)
	})
	return upcoming[0], true
}

// FindByDate returns the first appointment starting on the given date.
func FindByDate(appointments []Appointment, date time.Time) (Appointment, bool) {
	for _, a := range appointments {
		if a.StartsOn(date) {
			return a, true
		}
	}
	return Appointment{}, false
}
