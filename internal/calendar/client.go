package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultURL is the calendar collaborator endpoint.
const DefaultURL = "https://api.responsible-nlp.net/calendar.php"

// Client performs CRUD operations against the calendar collaborator. All
// operations are scoped to a calendar id; the collaborator's query
// parameter spells it "calenderid".
type Client struct {
	url        string
	calendarID string
	httpClient *http.Client
}

// NewClient creates a calendar client. An empty endpoint selects
// DefaultURL; an empty calendar id generates a fresh per-session one, so
// appointment identifiers are never shared across sessions.
func NewClient(endpoint, calendarID string) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if calendarID == "" {
		calendarID = "voicedesk-" + uuid.New().String()[:8]
	}
	return &Client{
		url:        endpoint,
		calendarID: calendarID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CalendarID returns the calendar this client is scoped to.
func (c *Client) CalendarID() string {
	return c.calendarID
}

func (c *Client) endpoint(id int) string {
	if id == 0 {
		return fmt.Sprintf("%s?calenderid=%s", c.url, c.calendarID)
	}
	return fmt.Sprintf("%s?calenderid=%s&id=%d", c.url, c.calendarID, id)
}

// do executes one JSON request/response round trip. A nil result discards
// the body after the status check.
func (c *Client) do(ctx context.Context, method, url string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("calendar service error: %s - %s", resp.Status, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// CreateInput holds the fields for a new appointment. Start and end use
// TimeLayout.
type CreateInput struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location,omitempty"`
}

// Create adds an appointment and returns it with the collaborator-assigned
// identifier.
func (c *Client) Create(ctx context.Context, input CreateInput) (Appointment, error) {
	var created Appointment
	if err := c.do(ctx, http.MethodPost, c.endpoint(0), input, &created); err != nil {
		return Appointment{}, err
	}
	return created, nil
}

// List returns all appointments in this client's calendar.
func (c *Client) List(ctx context.Context) ([]Appointment, error) {
	var appointments []Appointment
	if err := c.do(ctx, http.MethodGet, c.endpoint(0), nil, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// Get retrieves a single appointment by identifier.
func (c *Client) Get(ctx context.Context, id int) (Appointment, error) {
	var appointment Appointment
	if err := c.do(ctx, http.MethodGet, c.endpoint(id), nil, &appointment); err != nil {
		return Appointment{}, err
	}
	return appointment, nil
}

// UpdateInput holds the fields to change on an existing appointment. Nil
// fields are left untouched.
type UpdateInput struct {
	Title     *string `json:"title,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Location  *string `json:"location,omitempty"`
}

// Update modifies an appointment and returns the updated entry.
func (c *Client) Update(ctx context.Context, id int, input UpdateInput) (Appointment, error) {
	var updated Appointment
	if err := c.do(ctx, http.MethodPut, c.endpoint(id), input, &updated); err != nil {
		return Appointment{}, err
	}
	return updated, nil
}

// Delete removes an appointment.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, c.endpoint(id), nil, nil)
}
