package travel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

func matrixBody(status, durationText, trafficText string) string {
	return fmt.Sprintf(`{
		"status": %q,
		"rows": [{"elements": [{
			"status": "OK",
			"duration": {"text": %q},
			"duration_in_traffic": {"text": %q}
		}]}]
	}`, status, durationText, trafficText)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL, Logger: log.NewNop()})
	require.NoError(t, err)
	return c, srv
}

func TestTravelTime(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1 Main St", q.Get("origins"))
		assert.Equal(t, "500 Saratoga Ave", q.Get("destinations"))
		assert.Equal(t, "driving", q.Get("mode"), "empty mode defaults to driving")
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "imperial", q.Get("units"))
		fmt.Fprint(w, matrixBody("OK", "24 mins", "31 mins"))
	})

	got := c.TravelTime(context.Background(), "1 Main St", "500 Saratoga Ave", "")
	assert.Equal(t, "24 mins", got)
}

func TestTravelTimeAtArrival_UsesTrafficDuration(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "8:00 AM", q.Get("arrival_time"))
		assert.Equal(t, "best_guess", q.Get("traffic_model"))
		fmt.Fprint(w, matrixBody("OK", "24 mins", "31 mins"))
	})

	got := c.TravelTimeAtArrival(context.Background(), "a", "b", "8:00 AM", "transit")
	assert.Equal(t, "31 mins", got)
}

func TestTravelTime_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "REQUEST_DENIED", "rows": []}`)
	})

	got := c.TravelTime(context.Background(), "a", "b", "driving")
	assert.Equal(t, ErrorResult, got, "API-level failure is an error string, never a Go error")
}

func TestTravelTime_NetworkError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	got := c.TravelTime(context.Background(), "a", "b", "driving")
	assert.Equal(t, ErrorResult, got)
}

func TestKitDispatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, matrixBody("OK", "24 mins", "31 mins"))
	})
	kit, err := NewKit(c, log.NewNop())
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("travel time", func(t *testing.T) {
		got := kit.Dispatch(ctx, ToolTravelTime, `{"origin":"a","destination":"b","mode":"walking"}`)
		assert.Equal(t, "24 mins", got)
	})

	t.Run("arrival time variant", func(t *testing.T) {
		got := kit.Dispatch(ctx, ToolTravelTimeArrival, `{"origin":"a","destination":"b","arrival_time":"8:00 AM"}`)
		assert.Equal(t, "31 mins", got)
	})

	t.Run("departure time variant", func(t *testing.T) {
		got := kit.Dispatch(ctx, ToolTravelTimeDeparture, `{"origin":"a","destination":"b","departure_time":"7:30 AM"}`)
		assert.Equal(t, "31 mins", got)
	})

	t.Run("unknown function", func(t *testing.T) {
		got := kit.Dispatch(ctx, "get_weather", `{}`)
		assert.Equal(t, UnknownFunctionResult, got)
	})

	t.Run("malformed arguments", func(t *testing.T) {
		got := kit.Dispatch(ctx, ToolTravelTime, `{"origin": `)
		assert.Equal(t, invalidArgumentsResult, got)
	})
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 3)

	names := []string{defs[0].Name, defs[1].Name, defs[2].Name}
	assert.Equal(t, []string{ToolTravelTime, ToolTravelTimeArrival, ToolTravelTimeDeparture}, names)

	for _, def := range defs {
		props, ok := def.Parameters["properties"].(map[string]any)
		require.True(t, ok)
		mode, ok := props["mode"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, Modes, mode["enum"])
	}
}
