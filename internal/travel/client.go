// Package travel provides the travel-time collaborator: a Distance
// Matrix client and the function tools exposing it to the model.
//
// API-level failures never surface as Go errors. Every operation
// returns a human-readable string, either a duration or an error
// sentinel, because the result is fed straight back into the
// conversation.
package travel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

// DefaultBaseURL is the Google Distance Matrix endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// ErrorResult is returned for any API-level failure.
const ErrorResult = "Error fetching data"

// ModeDriving is the default travel mode.
const ModeDriving = "driving"

// Modes accepted by the API.
var Modes = []string{ModeDriving, "walking", "bicycling", "transit"}

const defaultTimeout = 10 * time.Second

// Client calls the Distance Matrix API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  log.Logger
}

// Config contains the parameters for a Client.
type Config struct {
	APIKey  string       // required
	BaseURL string       // zero = DefaultBaseURL
	Client  *http.Client // nil = default client with a 10s timeout
	Logger  log.Logger   // required
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("maps api key is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, apiKey: cfg.APIKey, client: client, logger: cfg.Logger}, nil
}

// TravelTime returns the current travel time between origin and
// destination.
func (c *Client) TravelTime(ctx context.Context, origin, destination, mode string) string {
	return c.query(ctx, c.params(origin, destination, mode), false)
}

// TravelTimeAtArrival returns the travel time when arriving at
// arrivalTime, using the best-guess traffic model.
func (c *Client) TravelTimeAtArrival(ctx context.Context, origin, destination, arrivalTime, mode string) string {
	params := c.params(origin, destination, mode)
	params.Set("arrival_time", arrivalTime)
	params.Set("traffic_model", "best_guess")
	return c.query(ctx, params, true)
}

// TravelTimeAtDeparture returns the travel time when departing at
// departureTime, using the best-guess traffic model.
func (c *Client) TravelTimeAtDeparture(ctx context.Context, origin, destination, departureTime, mode string) string {
	params := c.params(origin, destination, mode)
	params.Set("departure_time", departureTime)
	params.Set("traffic_model", "best_guess")
	return c.query(ctx, params, true)
}

func (c *Client) params(origin, destination, mode string) url.Values {
	if mode == "" {
		mode = ModeDriving
	}
	return url.Values{
		"origins":      {origin},
		"destinations": {destination},
		"mode":         {mode},
		"key":          {c.apiKey},
		"units":        {"imperial"},
	}
}

type matrixElement struct {
	Status   string `json:"status"`
	Duration struct {
		Text string `json:"text"`
	} `json:"duration"`
	DurationInTraffic struct {
		Text string `json:"text"`
	} `json:"duration_in_traffic"`
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

// query runs one Distance Matrix request. traffic selects
// duration_in_traffic over plain duration.
func (c *Client) query(ctx context.Context, params url.Values, traffic bool) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		c.logger.Warn("building travel request", "error", err)
		return ErrorResult
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("calling distance matrix", "error", err)
		return ErrorResult
	}
	defer func() { _ = resp.Body.Close() }()

	var data matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.logger.Warn("decoding distance matrix response", "error", err)
		return ErrorResult
	}

	if data.Status != "OK" || len(data.Rows) == 0 || len(data.Rows[0].Elements) == 0 {
		c.logger.Warn("distance matrix error", "status", data.Status)
		return ErrorResult
	}
	element := data.Rows[0].Elements[0]
	if element.Status != "" && element.Status != "OK" {
		c.logger.Warn("distance matrix element error", "status", element.Status)
		return ErrorResult
	}

	if traffic {
		return element.DurationInTraffic.Text
	}
	return element.Duration.Text
}
