package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaunagostinho/busdash/internal/render"
)

func TestObserveFetch(t *testing.T) {
	c := NewCollector(5 * time.Second)
	c.ObserveFetch("vehicles", 120*time.Millisecond, nil)
	c.ObserveFetch("vehicles", 30*time.Second, errors.New("timeout"))
	c.ObserveFetch("location", time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Fetches.WithLabelValues("vehicles")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FetchErrors.WithLabelValues("vehicles")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.FetchErrors.WithLabelValues("location")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.RenderInterval))
}

func TestPublish(t *testing.T) {
	c := NewCollector(time.Second)
	c.Publish(render.View{
		Status: render.StatusOK,
		Buses:  []render.BusView{{DistanceKm: 4.2}, {DistanceKm: 0.8}},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Renders))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.VisibleBuses))
	assert.Equal(t, 0.8, testutil.ToFloat64(c.NearestBusKm))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FrameStatus.WithLabelValues("ok")))

	c.Publish(render.View{Status: render.StatusWaitingLocation, Buses: []render.BusView{}})
	assert.Equal(t, -1.0, testutil.ToFloat64(c.NearestBusKm))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.FrameStatus.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FrameStatus.WithLabelValues("waiting_location")))
}

func TestHandler(t *testing.T) {
	c := NewCollector(time.Second)
	c.ObserveFetch("vehicles", time.Millisecond, nil)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `busdash_fetches_total{poller="vehicles"} 1`)
}
