package travel

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mvidal-dev/schoolscout/internal/llm"
	"github.com/mvidal-dev/schoolscout/internal/log"
)

// Function names exposed to the model.
const (
	ToolTravelTime          = "get_travel_time"
	ToolTravelTimeArrival   = "get_travel_time_based_on_arrival_time"
	ToolTravelTimeDeparture = "get_travel_time_based_on_departure_time"
)

// UnknownFunctionResult is returned when the model calls a function we
// do not provide. Degrading to a sentinel keeps the turn alive.
const UnknownFunctionResult = "Unknown function"

// invalidArgumentsResult is returned when function arguments do not
// parse as JSON.
const invalidArgumentsResult = "Error: could not parse function arguments"

func modeProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"enum":        Modes,
		"description": "Travel mode, defaults to driving",
	}
}

func baseProperties() map[string]any {
	return map[string]any{
		"origin":      map[string]any{"type": "string", "description": "Starting address"},
		"destination": map[string]any{"type": "string", "description": "Destination address"},
		"mode":        modeProperty(),
	}
}

// Definitions returns the tool schemas for the completion collaborator.
func Definitions() []llm.Tool {
	arrivalProps := baseProperties()
	arrivalProps["arrival_time"] = map[string]any{
		"type":        "string",
		"description": "Desired arrival time, e.g. 8:00 AM",
	}
	departureProps := baseProperties()
	departureProps["departure_time"] = map[string]any{
		"type":        "string",
		"description": "Desired departure time, e.g. 7:30 AM",
	}

	return []llm.Tool{
		{
			Name:        ToolTravelTime,
			Description: "Get the current travel time between two addresses.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": baseProperties(),
				"required":   []string{"origin", "destination"},
			},
		},
		{
			Name:        ToolTravelTimeArrival,
			Description: "Get the travel time between two addresses when arriving at a given time.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": arrivalProps,
				"required":   []string{"origin", "destination", "arrival_time"},
			},
		},
		{
			Name:        ToolTravelTimeDeparture,
			Description: "Get the travel time between two addresses when departing at a given time.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": departureProps,
				"required":   []string{"origin", "destination", "departure_time"},
			},
		},
	}
}

// Kit dispatches tool calls to the travel Client.
type Kit struct {
	client *Client
	logger log.Logger
}

// NewKit creates a Kit.
func NewKit(client *Client, logger log.Logger) (*Kit, error) {
	if client == nil {
		return nil, errors.New("travel client is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Kit{client: client, logger: logger}, nil
}

type callArguments struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Mode          string `json:"mode"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
}

// Dispatch executes the named function with JSON-encoded arguments and
// returns the result string. Unknown names and malformed arguments
// degrade to sentinel strings, never errors.
func (k *Kit) Dispatch(ctx context.Context, name, arguments string) string {
	var args callArguments
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		k.logger.Warn("malformed tool arguments", "function", name, "error", err)
		return invalidArgumentsResult
	}

	switch name {
	case ToolTravelTime:
		return k.client.TravelTime(ctx, args.Origin, args.Destination, args.Mode)
	case ToolTravelTimeArrival:
		return k.client.TravelTimeAtArrival(ctx, args.Origin, args.Destination, args.ArrivalTime, args.Mode)
	case ToolTravelTimeDeparture:
		return k.client.TravelTimeAtDeparture(ctx, args.Origin, args.Destination, args.DepartureTime, args.Mode)
	default:
		k.logger.Warn("unknown function called", "function", name)
		return UnknownFunctionResult
	}
}
