package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkempf/voicedesk/internal/calendar"
	"github.com/mkempf/voicedesk/internal/dialog"
	"github.com/mkempf/voicedesk/internal/metrics"
	"github.com/mkempf/voicedesk/internal/nlu"
	"github.com/mkempf/voicedesk/internal/weather"
)

// tuesday anchors all relative dates in these tests: 2026-09-01, a Tuesday.
var tuesday = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

type fakeWeather struct {
	forecast weather.Forecast
	err      error
	places   []string
}

func (f *fakeWeather) Forecast(ctx context.Context, place string) (weather.Forecast, error) {
	f.places = append(f.places, place)
	if f.err != nil {
		return weather.Forecast{}, f.err
	}
	forecast := f.forecast
	forecast.Place = place
	return forecast, nil
}

type fakeCalendar struct {
	nextID       int
	appointments map[int]calendar.Appointment
	updates      map[int]calendar.UpdateInput
	deleted      []int
	err          error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		nextID:       42,
		appointments: make(map[int]calendar.Appointment),
		updates:      make(map[int]calendar.UpdateInput),
	}
}

func (f *fakeCalendar) Create(ctx context.Context, input calendar.CreateInput) (calendar.Appointment, error) {
	if f.err != nil {
		return calendar.Appointment{}, f.err
	}
	a := calendar.Appointment{
		ID:        f.nextID,
		Title:     input.Title,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Location:  input.Location,
	}
	f.appointments[a.ID] = a
	f.nextID++
	return a, nil
}

func (f *fakeCalendar) List(ctx context.Context) ([]calendar.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []calendar.Appointment
	for _, a := range f.appointments {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeCalendar) Get(ctx context.Context, id int) (calendar.Appointment, error) {
	if f.err != nil {
		return calendar.Appointment{}, f.err
	}
	a, ok := f.appointments[id]
	if !ok {
		return calendar.Appointment{}, errors.New("not found")
	}
	return a, nil
}

func (f *fakeCalendar) Update(ctx context.Context, id int, input calendar.UpdateInput) (calendar.Appointment, error) {
	if f.err != nil {
		return calendar.Appointment{}, f.err
	}
	f.updates[id] = input
	return f.appointments[id], nil
}

func (f *fakeCalendar) Delete(ctx context.Context, id int) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	delete(f.appointments, id)
	return nil
}

type fakeTurnLog struct {
	turns []dialog.Turn
	err   error
}

func (f *fakeTurnLog) Append(ctx context.Context, sessionID string, turn dialog.Turn) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, turn)
	return nil
}

var marburgForecast = weather.Forecast{
	Days: []weather.Day{
		{Name: "tuesday", TempMin: 12, TempMax: 18, Condition: "sunny"},
		{Name: "wednesday", TempMin: 10, TempMax: 15, Condition: "cloudy"},
		{Name: "saturday", TempMin: 8, TempMax: 12, Condition: "light rain"},
	},
}

func newTestAssistant(w WeatherProvider, c CalendarProvider) *Assistant {
	return New(Config{
		SessionID: "test-session",
		Weather:   w,
		Calendar:  c,
		Now:       func() time.Time { return tuesday },
	})
}

func TestWeatherQueryToday(t *testing.T) {
	w := &fakeWeather{forecast: marburgForecast}
	a := newTestAssistant(w, newFakeCalendar())

	res := a.ProcessTurn(context.Background(), "What's the weather like in Marburg today?")

	assert.Empty(t, res.Failure)
	assert.Equal(t, nlu.IntentWeatherQuery, res.Intent)
	assert.Equal(t, "The weather in Marburg for Tuesday will be sunny with temperatures between 12°C and 18°C.", res.Response)
	assert.Equal(t, []string{"Marburg"}, w.places)
}

func TestRainFollowupUsesRememberedLocation(t *testing.T) {
	w := &fakeWeather{forecast: marburgForecast}
	a := newTestAssistant(w, newFakeCalendar())

	first := a.ProcessTurn(context.Background(), "What's the weather like in Marburg today?")
	require.Empty(t, first.Failure)

	second := a.ProcessTurn(context.Background(), "Will it rain there on Saturday?")
	require.Empty(t, second.Failure)
	assert.Equal(t, nlu.IntentRainQuery, second.Intent)
	assert.Equal(t, "Yes, it will rain in Marburg on Saturday.", second.Response)

	third := a.ProcessTurn(context.Background(), "Will it rain there tomorrow?")
	require.Empty(t, third.Failure)
	assert.Equal(t, "No, it won't rain in Marburg on Wednesday.", third.Response)
}

func TestBareContinuationReclassifiedAsFollowup(t *testing.T) {
	w := &fakeWeather{forecast: marburgForecast}
	a := newTestAssistant(w, newFakeCalendar())

	first := a.ProcessTurn(context.Background(), "How will the weather be in Frankfurt on Friday?")
	require.Empty(t, first.Failure)

	second := a.ProcessTurn(context.Background(), "And in Kassel?")
	require.Empty(t, second.Failure)
	assert.Equal(t, nlu.IntentFollowup, second.Intent)
	assert.Contains(t, second.Response, "Kassel")
	assert.Equal(t, []string{"Frankfurt", "Kassel"}, w.places)
}

func TestUnknownWithoutContextAsksForRephrase(t *testing.T) {
	a := newTestAssistant(&fakeWeather{forecast: marburgForecast}, newFakeCalendar())

	res := a.ProcessTurn(context.Background(), "Sing me a song")

	assert.Equal(t, "intent_not_recognized", res.Failure)
	assert.Equal(t, nlu.IntentUnknown, res.Intent)
	assert.Equal(t, "I'm not sure I understand. Can you rephrase that?", res.Response)

	// The failed turn still enters history.
	require.Equal(t, 1, a.Context().TurnCount())
	assert.Equal(t, "intent_not_recognized", a.Context().History()[0].Failure)
}

func TestReferenceWithoutAntecedent(t *testing.T) {
	a := newTestAssistant(&fakeWeather{forecast: marburgForecast}, newFakeCalendar())

	res := a.ProcessTurn(context.Background(), "Will it rain there tomorrow?")

	assert.Equal(t, "reference_unresolved", res.Failure)
	assert.NotEmpty(t, res.UnresolvedReference)
	assert.Equal(t, "I need to know the location. Which city are you asking about?", res.Response)
}

func TestAmbiguousDateNeverDefaults(t *testing.T) {
	w := &fakeWeather{forecast: marburgForecast}
	a := newTestAssistant(w, newFakeCalendar())

	res := a.ProcessTurn(context.Background(), "What's the weather in Berlin on the 32nd of Januember?")

	assert.Equal(t, "ambiguous_date", res.Failure)
	assert.True(t, res.Ambiguous)
	assert.Equal(t, "I couldn't make sense of that date. Could you say it differently?", res.Response)
	assert.Empty(t, w.places, "no collaborator call for an unresolved turn")
}

func TestAppointmentCreateRemembersIdentifier(t *testing.T) {
	cal := newFakeCalendar()
	a := newTestAssistant(&fakeWeather{}, cal)

	res := a.ProcessTurn(context.Background(), "Create an appointment titled XYZ for the 12th of January")

	require.Empty(t, res.Failure)
	assert.Equal(t, "I've created an appointment titled 'XYZ' for 2027-01-12 at 09:00.", res.Response)

	created := cal.appointments[42]
	assert.Equal(t, "XYZ", created.Title)
	assert.Equal(t, "2027-01-12T09:00", created.StartTime)
	assert.Equal(t, "2027-01-12T10:00", created.EndTime)

	id, ok := a.Context().AppointmentID()
	require.True(t, ok)
	assert.Equal(t, 42, id)
}

func TestAppointmentCreateWithExplicitTime(t *testing.T) {
	cal := newFakeCalendar()
	a := newTestAssistant(&fakeWeather{}, cal)

	res := a.ProcessTurn(context.Background(), "Schedule a meeting called Standup at 9:30 am tomorrow")

	require.Empty(t, res.Failure)
	created := cal.appointments[42]
	assert.Equal(t, "Standup", created.Title)
	assert.Equal(t, "2026-09-02T09:30", created.StartTime)
	assert.Equal(t, "2026-09-02T10:30", created.EndTime)
}

func TestAppointmentCreateMissingDate(t *testing.T) {
	cal := newFakeCalendar()
	a := newTestAssistant(&fakeWeather{}, cal)

	res := a.ProcessTurn(context.Background(), "Create an appointment titled XYZ")

	assert.Equal(t, "entity_missing", res.Failure)
	assert.Equal(t, "I need a date for the appointment. When would you like to schedule it?", res.Response)
	assert.Empty(t, cal.appointments, "nothing created for a failed turn")
}

func TestAppointmentDeleteClearsRememberedIdentifier(t *testing.T) {
	cal := newFakeCalendar()
	a := newTestAssistant(&fakeWeather{}, cal)

	create := a.ProcessTurn(context.Background(), "Create an appointment titled XYZ for the 12th of January")
	require.Empty(t, create.Failure)

	del := a.ProcessTurn(context.Background(), "Delete the previously created appointment")
	require.Empty(t, del.Failure)
	assert.Equal(t, "I've deleted the appointment.", del.Response)
	assert.Equal(t, []int{42}, cal.deleted)

	_, ok := a.Context().AppointmentID()
	assert.False(t, ok, "identifier must be forgotten after delete")

	again := a.ProcessTurn(context.Background(), "Delete the previously created appointment")
	assert.Equal(t, "reference_unresolved", again.Failure)
	assert.Equal(t, "I need to know which appointment you mean. Can you be more specific?", again.Response)
	assert.Equal(t, []int{42}, cal.deleted, "no second delete issued")
}

func TestAppointmentUpdateLocation(t *testing.T) {
	cal := newFakeCalendar()
	a := newTestAssistant(&fakeWeather{}, cal)

	create := a.ProcessTurn(context.Background(), "Create an appointment titled XYZ for the 12th of January")
	require.Empty(t, create.Failure)

	res := a.ProcessTurn(context.Background(), "Change the place of my appointment to Room 15")

	require.Empty(t, res.Failure)
	assert.Equal(t, "I've updated the appointment.", res.Response)

	update, ok := cal.updates[42]
	require.True(t, ok)
	require.NotNil(t, update.Location)
	assert.Equal(t, "Room 15", *update.Location)
	assert.Nil(t, update.Title)
	assert.Nil(t, update.StartTime)
}

func TestAppointmentUpdateTimeKeepsDay(t *testing.T) {
	cal := newFakeCalendar()
	a := newTestAssistant(&fakeWeather{}, cal)

	create := a.ProcessTurn(context.Background(), "Create an appointment titled XYZ for the 12th of January")
	require.Empty(t, create.Failure)

	res := a.ProcessTurn(context.Background(), "Change the time of my appointment to 3 pm")

	require.Empty(t, res.Failure)
	update, ok := cal.updates[42]
	require.True(t, ok)
	require.NotNil(t, update.StartTime)
	assert.Equal(t, "2027-01-12T15:00", *update.StartTime)
	require.NotNil(t, update.EndTime)
	assert.Equal(t, "2027-01-12T16:00", *update.EndTime)
}

func TestAppointmentUpdateFallsBackToNextUpcoming(t *testing.T) {
	cal := newFakeCalendar()
	cal.appointments[7] = calendar.Appointment{ID: 7, Title: "Standup", StartTime: "2026-09-02T09:00"}
	a := newTestAssistant(&fakeWeather{}, cal)

	res := a.ProcessTurn(context.Background(), "Change the place of my meeting to Room 15")

	require.Empty(t, res.Failure)
	_, ok := cal.updates[7]
	assert.True(t, ok, "the next upcoming appointment is the update target")
}

func TestAppointmentQueryNextUpcoming(t *testing.T) {
	cal := newFakeCalendar()
	cal.appointments[1] = calendar.Appointment{ID: 1, Title: "Review", StartTime: "2026-09-04T14:00"}
	cal.appointments[2] = calendar.Appointment{ID: 2, Title: "Standup", StartTime: "2026-09-02T09:00", Location: "Room 3"}
	cal.appointments[3] = calendar.Appointment{ID: 3, Title: "Old", StartTime: "2026-08-01T09:00"}
	a := newTestAssistant(&fakeWeather{}, cal)

	res := a.ProcessTurn(context.Background(), "When is my next appointment?")

	require.Empty(t, res.Failure)
	assert.Equal(t, "Your next appointment is 'Standup' on Wednesday, September 2 at 09:00 in Room 3.", res.Response)
}

func TestAppointmentQueryEmptyCalendar(t *testing.T) {
	a := newTestAssistant(&fakeWeather{}, newFakeCalendar())

	res := a.ProcessTurn(context.Background(), "Do I have any meetings tomorrow?")

	require.Empty(t, res.Failure)
	assert.Equal(t, "You don't have any upcoming appointments.", res.Response)
}

func TestCollaboratorFailureRecoversAtTurnBoundary(t *testing.T) {
	w := &fakeWeather{forecast: marburgForecast, err: errors.New("connection refused")}
	a := newTestAssistant(w, newFakeCalendar())

	first := a.ProcessTurn(context.Background(), "What's the weather in Berlin?")
	assert.Equal(t, "collaborator_error", first.Failure)
	assert.Equal(t, "I'm having trouble reaching that service right now. Please try again.", first.Response)

	// The turn resolved before the collaborator failed, so its location is
	// remembered and the session continues normally once the service is back.
	w.err = nil
	second := a.ProcessTurn(context.Background(), "Will it rain there tomorrow?")
	require.Empty(t, second.Failure)
	assert.Contains(t, second.Response, "Berlin")
}

func TestMetricsRecorded(t *testing.T) {
	collector := metrics.NewCollector()
	a := New(Config{
		SessionID: "test-session",
		Weather:   &fakeWeather{forecast: marburgForecast},
		Calendar:  newFakeCalendar(),
		Metrics:   collector,
		Now:       func() time.Time { return tuesday },
	})

	a.ProcessTurn(context.Background(), "What's the weather in Marburg today?")
	a.ProcessTurn(context.Background(), "Sing me a song")

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.Turns)
	assert.Equal(t, int64(1), snap.TurnsByIntent[string(nlu.IntentWeatherQuery)])
	assert.Equal(t, int64(1), snap.FailuresByKind["intent_not_recognized"])
	require.NotNil(t, snap.WeatherForecast)
	assert.Equal(t, int64(1), snap.WeatherForecast.Count)
}

func TestTranscriptReceivesEveryTurn(t *testing.T) {
	log := &fakeTurnLog{}
	a := New(Config{
		SessionID:  "test-session",
		Weather:    &fakeWeather{forecast: marburgForecast},
		Calendar:   newFakeCalendar(),
		Transcript: log,
		Now:        func() time.Time { return tuesday },
	})

	a.ProcessTurn(context.Background(), "What's the weather in Marburg today?")
	a.ProcessTurn(context.Background(), "Sing me a song")

	require.Len(t, log.turns, 2)
	assert.Equal(t, 0, log.turns[0].Utterance.TurnIndex)
	assert.Equal(t, 1, log.turns[1].Utterance.TurnIndex)
	assert.Equal(t, "intent_not_recognized", log.turns[1].Failure)
}

func TestTranscriptFailureDoesNotFailTurn(t *testing.T) {
	a := New(Config{
		SessionID:  "test-session",
		Weather:    &fakeWeather{forecast: marburgForecast},
		Calendar:   newFakeCalendar(),
		Transcript: &fakeTurnLog{err: errors.New("disk full")},
		Now:        func() time.Time { return tuesday },
	})

	res := a.ProcessTurn(context.Background(), "What's the weather in Marburg today?")
	assert.Empty(t, res.Failure, "a failing turn log never fails the turn")
}
