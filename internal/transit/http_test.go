package transit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaunagostinho/busdash/internal/geo"
)

func TestHTTPFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ltcSample))
	}))
	defer srv.Close()

	feed := NewHTTPFeed(HTTPConfig{Name: "LTC", URL: srv.URL})
	assert.Equal(t, "LTC", feed.Name())

	vehicles, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 2)
}

func TestHTTPFeedNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPFeed(HTTPConfig{URL: srv.URL}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestHTTPFeedTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	feed := NewHTTPFeed(HTTPConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := feed.Fetch(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDemoFeed(t *testing.T) {
	center := geo.Coordinate{Lat: 42.98, Lon: -81.23}
	routes := []string{"02", "04"}
	feed := NewDemoFeed(center, func() []string { return routes })

	vehicles, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 6)
	for _, v := range vehicles {
		assert.Contains(t, []string{"02", "04"}, v.RouteID)
		assert.Less(t, geo.Distance(center, v.Position), 3.0)
		assert.GreaterOrEqual(t, v.Bearing, 0.0)
		assert.Less(t, v.Bearing, 360.0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = feed.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemoFeedFollowsRoutes(t *testing.T) {
	routes := []string{"02"}
	feed := NewDemoFeed(geo.Coordinate{}, func() []string { return routes })

	vehicles, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 3)

	routes = []string{"13", "27"}
	vehicles, err = feed.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 6)
	assert.Equal(t, "13", vehicles[0].RouteID)

	vehicles, err = NewDemoFeed(geo.Coordinate{}, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 3*len(demoRoutes))
}
