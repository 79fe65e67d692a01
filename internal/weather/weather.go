// Package weather provides the client for the external weather collaborator
// and the forecast post-processing the engine performs on its responses.
package weather

import (
	"strings"
	"time"
)

// Day is one forecast entry. The collaborator keys entries by weekday name
// rather than calendar date.
type Day struct {
	Name      string
	TempMin   float64
	TempMax   float64
	Condition string
}

// Forecast is the ordered multi-day forecast for a place.
type Forecast struct {
	Place string
	Days  []Day
}

// ForDate picks the forecast entry matching the resolved date's weekday.
// The collaborator reports weekday names, so an absolute date is matched by
// its weekday; false when the forecast does not cover that day.
func (f Forecast) ForDate(date time.Time) (Day, bool) {
	want := strings.ToLower(date.Weekday().String())
	for _, d := range f.Days {
		if strings.ToLower(d.Name) == want {
			return d, true
		}
	}
	return Day{}, false
}

// First returns the leading forecast entry, used for general "how is the
// weather" queries without a date.
func (f Forecast) First() (Day, bool) {
	if len(f.Days) == 0 {
		return Day{}, false
	}
	return f.Days[0], true
}

// Rainy reports whether the entry's condition mentions rain.
func (d Day) Rainy() bool {
	return strings.Contains(strings.ToLower(d.Condition), "rain")
}

// WillRain answers a rain query. With a date it checks that day's entry;
// without one it checks whether any forecast day is rainy.
func (f Forecast) WillRain(date *time.Time) bool {
	if date != nil {
		d, ok := f.ForDate(*date)
		return ok && d.Rainy()
	}
	for _, d := range f.Days {
		if d.Rainy() {
			return true
		}
	}
	return false
}
