package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURL is the weather collaborator endpoint.
const DefaultURL = "https://api.responsible-nlp.net/weather.php"

// Client fetches forecasts from the weather collaborator. The collaborator
// accepts a form-encoded POST with the place name and responds with a
// multi-day JSON forecast.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a weather client. An empty endpoint selects DefaultURL.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		url:        endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// wire types: the collaborator nests temperatures under a "temperature"
// object.
type wireForecast struct {
	Place    string    `json:"place"`
	Forecast []wireDay `json:"forecast"`
}

type wireDay struct {
	Day         string `json:"day"`
	Temperature struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temperature"`
	Weather string `json:"weather"`
}

// Forecast retrieves the forecast for a place.
func (c *Client) Forecast(ctx context.Context, place string) (Forecast, error) {
	form := url.Values{"place": {place}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return Forecast{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Forecast{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Forecast{}, fmt.Errorf("weather service error: %s - %s", resp.Status, string(body))
	}

	var wire wireForecast
	if err := json.Unmarshal(body, &wire); err != nil {
		return Forecast{}, fmt.Errorf("unmarshal forecast: %w", err)
	}

	f := Forecast{Place: wire.Place, Days: make([]Day, 0, len(wire.Forecast))}
	for _, d := range wire.Forecast {
		f.Days = append(f.Days, Day{
			Name:      d.Day,
			TempMin:   d.Temperature.Min,
			TempMax:   d.Temperature.Max,
			Condition: d.Weather,
		})
	}
	return f, nil
}
