package assistant

import (
	"context"

	"github.com/mkempf/voicedesk/internal/calendar"
	"github.com/mkempf/voicedesk/internal/dialog"
	"github.com/mkempf/voicedesk/internal/weather"
)

// WeatherProvider is the external weather collaborator as the orchestrator
// sees it. Blocking happens inside the collaborator; the call is synchronous.
type WeatherProvider interface {
	Forecast(ctx context.Context, place string) (weather.Forecast, error)
}

// CalendarProvider is the external calendar collaborator. Appointment
// identifiers are assigned by the collaborator and written back into
// conversation context only by the orchestrator.
type CalendarProvider interface {
	Create(ctx context.Context, input calendar.CreateInput) (calendar.Appointment, error)
	List(ctx context.Context) ([]calendar.Appointment, error)
	Get(ctx context.Context, id int) (calendar.Appointment, error)
	Update(ctx context.Context, id int, input calendar.UpdateInput) (calendar.Appointment, error)
	Delete(ctx context.Context, id int) error
}

// TurnLog persists processed turns. Persistence is best-effort: a failing
// log never fails the turn.
type TurnLog interface {
	Append(ctx context.Context, sessionID string, turn dialog.Turn) error
}

var (
	_ WeatherProvider  = (*weather.Client)(nil)
	_ CalendarProvider = (*calendar.Client)(nil)
)
