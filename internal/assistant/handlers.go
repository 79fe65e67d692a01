package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkempf/voicedesk/internal/calendar"
	"github.com/mkempf/voicedesk/internal/dialog"
	"github.com/mkempf/voicedesk/internal/metrics"
	"github.com/mkempf/voicedesk/internal/nlu"
	"github.com/mkempf/voicedesk/internal/weather"
)

// defaultAppointmentTime is used when a create carries no explicit clock
// time. Appointments default to one hour.
const defaultAppointmentTime = "09:00"

func (a *Assistant) handleWeatherQuery(ctx context.Context, ents nlu.Entities) (string, error) {
	place, _ := ents.Get(nlu.SlotLocation)

	forecast, err := a.fetchForecast(ctx, place)
	if err != nil {
		return "", err
	}

	var (
		day   weather.Day
		found bool
	)
	if dateStr, ok := ents.Get(nlu.SlotDate); ok {
		date, err := nlu.ParseDate(dateStr)
		if err != nil {
			return "", fmt.Errorf("%w: %v", dialog.ErrCollaborator, err)
		}
		if day, found = forecast.ForDate(date); !found {
			return fmt.Sprintf("I couldn't find weather information for %s in %s.",
				date.Weekday(), place), nil
		}
	} else if day, found = forecast.First(); !found {
		return fmt.Sprintf("I couldn't find weather information for %s.", place), nil
	}

	return fmt.Sprintf("The weather in %s for %s will be %s with temperatures between %g°C and %g°C.",
		place, capitalize(day.Name), day.Condition, day.TempMin, day.TempMax), nil
}

func (a *Assistant) handleRainQuery(ctx context.Context, ents nlu.Entities) (string, error) {
	place, _ := ents.Get(nlu.SlotLocation)

	forecast, err := a.fetchForecast(ctx, place)
	if err != nil {
		return "", err
	}

	if dateStr, ok := ents.Get(nlu.SlotDate); ok {
		date, err := nlu.ParseDate(dateStr)
		if err != nil {
			return "", fmt.Errorf("%w: %v", dialog.ErrCollaborator, err)
		}
		if forecast.WillRain(&date) {
			return fmt.Sprintf("Yes, it will rain in %s on %s.", place, date.Weekday()), nil
		}
		return fmt.Sprintf("No, it won't rain in %s on %s.", place, date.Weekday()), nil
	}

	if forecast.WillRain(nil) {
		return fmt.Sprintf("Yes, rain is expected in %s in the upcoming days.", place), nil
	}
	return fmt.Sprintf("No, no rain is expected in %s in the upcoming days.", place), nil
}

func (a *Assistant) handleAppointmentQuery(ctx context.Context, now time.Time) (string, error) {
	appointments, err := a.listAppointments(ctx)
	if err != nil {
		return "", err
	}

	next, ok := calendar.Next(appointments, now)
	if !ok {
		return "You don't have any upcoming appointments.", nil
	}
	return formatAppointment(next), nil
}

func (a *Assistant) handleAppointmentCreate(ctx context.Context, ents nlu.Entities) (string, error) {
	// title and date presence was validated by the tracker
	title, _ := ents.Get(nlu.SlotTitle)
	dateStr, _ := ents.Get(nlu.SlotDate)

	clock, ok := ents.Get(nlu.SlotTime)
	if !ok {
		clock = defaultAppointmentTime
	}
	location, _ := ents.Get(nlu.SlotLocation)

	input := calendar.CreateInput{
		Title:     title,
		StartTime: dateStr + "T" + clock,
		EndTime:   dateStr + "T" + addHour(clock),
		Location:  location,
	}

	start := time.Now()
	created, err := a.calendar.Create(ctx, input)
	a.observe(metrics.OpCalendarCall, start)
	if err != nil {
		return "", fmt.Errorf("%w: calendar service: %v", dialog.ErrCollaborator, err)
	}

	// Write the collaborator-assigned identifier back into context. The
	// tracker only reserves this slot; the orchestrator fills it.
	a.convo.SetAppointmentID(created.ID)

	return fmt.Sprintf("I've created an appointment titled '%s' for %s at %s.", title, dateStr, clock), nil
}

func (a *Assistant) handleAppointmentDelete(ctx context.Context, ents nlu.Entities) (string, error) {
	// the tracker already resolved the reference against context
	ref, _ := ents.Get(nlu.SlotAppointmentRef)
	id, err := strconv.Atoi(ref)
	if err != nil {
		return "", fmt.Errorf("%w: appointment reference %q is not an identifier", dialog.ErrReferenceUnresolved, ref)
	}

	start := time.Now()
	err = a.calendar.Delete(ctx, id)
	a.observe(metrics.OpCalendarCall, start)
	if err != nil {
		return "", fmt.Errorf("%w: calendar service: %v", dialog.ErrCollaborator, err)
	}

	a.convo.ClearAppointmentID()

	return "I've deleted the appointment.", nil
}

func (a *Assistant) handleAppointmentUpdate(ctx context.Context, ents nlu.Entities, now time.Time) (string, error) {
	target, err := a.resolveUpdateTarget(ctx, ents, now)
	if err != nil {
		return "", err
	}

	field, _ := ents.Get(nlu.SlotTargetField)
	value, _ := ents.Get(nlu.SlotTargetValue)

	var input calendar.UpdateInput
	switch field {
	case "location":
		input.Location = &value
	case "title":
		input.Title = &value
	case "time":
		clock, ok := ents.Get(nlu.SlotTime)
		if !ok {
			return "", fmt.Errorf("%w: %s", dialog.ErrEntityMissing, nlu.SlotTime)
		}
		day := strings.SplitN(target.StartTime, "T", 2)[0]
		startTime := day + "T" + clock
		endTime := day + "T" + addHour(clock)
		input.StartTime = &startTime
		input.EndTime = &endTime
	default:
		return "", fmt.Errorf("%w: %s", dialog.ErrEntityMissing, nlu.SlotTargetField)
	}

	start := time.Now()
	_, err = a.calendar.Update(ctx, target.ID, input)
	a.observe(metrics.OpCalendarCall, start)
	if err != nil {
		return "", fmt.Errorf("%w: calendar service: %v", dialog.ErrCollaborator, err)
	}

	return "I've updated the appointment.", nil
}

// resolveUpdateTarget finds which appointment an update refers to: the
// remembered appointment id when the tracker resolved one, else a
// lookup-by-date against the collaborator, else the next upcoming
// appointment.
func (a *Assistant) resolveUpdateTarget(ctx context.Context, ents nlu.Entities, now time.Time) (calendar.Appointment, error) {
	if ref, ok := ents.Get(nlu.SlotAppointmentRef); ok {
		id, err := strconv.Atoi(ref)
		if err != nil {
			return calendar.Appointment{}, fmt.Errorf("%w: appointment reference %q is not an identifier", dialog.ErrReferenceUnresolved, ref)
		}
		start := time.Now()
		appointment, err := a.calendar.Get(ctx, id)
		a.observe(metrics.OpCalendarCall, start)
		if err != nil {
			return calendar.Appointment{}, fmt.Errorf("%w: calendar service: %v", dialog.ErrCollaborator, err)
		}
		return appointment, nil
	}

	appointments, err := a.listAppointments(ctx)
	if err != nil {
		return calendar.Appointment{}, err
	}

	if dateStr, ok := ents.Get(nlu.SlotDate); ok {
		date, err := nlu.ParseDate(dateStr)
		if err != nil {
			return calendar.Appointment{}, fmt.Errorf("%w: %v", dialog.ErrCollaborator, err)
		}
		if appointment, found := calendar.FindByDate(appointments, date); found {
			return appointment, nil
		}
		return calendar.Appointment{}, fmt.Errorf("%w: no appointment on %s", dialog.ErrReferenceUnresolved, dateStr)
	}

	if appointment, found := calendar.Next(appointments, now); found {
		return appointment, nil
	}
	return calendar.Appointment{}, fmt.Errorf("%w: no appointment to update", dialog.ErrReferenceUnresolved)
}

func (a *Assistant) fetchForecast(ctx context.Context, place string) (weather.Forecast, error) {
	start := time.Now()
	forecast, err := a.weather.Forecast(ctx, place)
	a.observe(metrics.OpWeatherForecast, start)
	if err != nil {
		return weather.Forecast{}, fmt.Errorf("%w: weather service: %v", dialog.ErrCollaborator, err)
	}
	return forecast, nil
}

func (a *Assistant) listAppointments(ctx context.Context) ([]calendar.Appointment, error) {
	start := time.Now()
	appointments, err := a.calendar.List(ctx)
	a.observe(metrics.OpCalendarCall, start)
	if err != nil {
		return nil, fmt.Errorf("%w: calendar service: %v", dialog.ErrCollaborator, err)
	}
	return appointments, nil
}

// failurePrompt renders a recoverable failure as a clarification prompt.
func failurePrompt(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, dialog.ErrAmbiguousDate):
		return "I couldn't make sense of that date. Could you say it differently?"
	case errors.Is(err, dialog.ErrEntityMissing):
		switch {
		case strings.Contains(msg, string(nlu.SlotTitle)):
			return "What should the appointment be called?"
		case strings.Contains(msg, string(nlu.SlotDate)):
			return "I need a date for the appointment. When would you like to schedule it?"
		case strings.Contains(msg, string(nlu.SlotTime)):
			return "What time should it be moved to?"
		default:
			return "I'm not sure what you want to change. Can you be more specific?"
		}
	case errors.Is(err, dialog.ErrReferenceUnresolved):
		if strings.Contains(msg, "location") {
			return "I need to know the location. Which city are you asking about?"
		}
		return "I need to know which appointment you mean. Can you be more specific?"
	case errors.Is(err, dialog.ErrCollaborator):
		return "I'm having trouble reaching that service right now. Please try again."
	default:
		return "I'm not sure I understand. Can you rephrase that?"
	}
}

func formatAppointment(a calendar.Appointment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your next appointment is '%s'", a.Title)
	if start, err := a.Start(); err == nil {
		fmt.Fprintf(&sb, " on %s at %s", start.Format("Monday, January 2"), start.Format("15:04"))
	}
	if a.Location != "" {
		fmt.Fprintf(&sb, " in %s", a.Location)
	}
	sb.WriteString(".")
	return sb.String()
}

// addHour shifts an HH:MM clock one hour forward, wrapping at midnight the
// way the original scheduling behavior did (the date part is not advanced).
func addHour(clock string) string {
	t, err := time.Parse(nlu.ClockLayout, clock)
	if err != nil {
		return clock
	}
	shifted := t.Add(time.Hour)
	return fmt.Sprintf("%02d:%02d", shifted.Hour(), shifted.Minute())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
