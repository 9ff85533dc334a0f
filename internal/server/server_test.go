package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaunagostinho/busdash/internal/config"
	"github.com/shaunagostinho/busdash/internal/render"
	"github.com/shaunagostinho/busdash/internal/routes"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Options{
		Config: config.DefaultConfig(),
		Filter: routes.NewFilter([]string{"02"}),
		WebFS: fstest.MapFS{
			"index.html": {Data: []byte("<html>busdash</html>")},
		},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "busdash_renders_total 1\n")
		}),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestGetRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/routes")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body routesBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"02"}, body.Routes)
}

func TestPostRoutes(t *testing.T) {
	s, ts := newTestServer(t)
	before := s.filter.Version()

	resp, err := http.Post(ts.URL+"/api/routes", "text/plain", strings.NewReader("6, 13"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body routesBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.ElementsMatch(t, []string{"06", "13"}, body.Routes)
	assert.Greater(t, s.filter.Version(), before)
}

func TestPostRoutesSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	s := New(Options{Config: cfg, Filter: routes.NewFilter([]string{"02"})})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/routes?save=1", "text/plain", strings.NewReader("13"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"13"}, saved.Routes)
}

func TestPostRoutesSaveWithoutPath(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/routes?save=1", "text/plain", strings.NewReader("13"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPostRoutesRejectsBadInput(t *testing.T) {
	s, ts := newTestServer(t)

	for _, input := range []string{"", "   ", "quit"} {
		resp, err := http.Post(ts.URL+"/api/routes", "text/plain", strings.NewReader(input))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "input %q", input)
	}
	assert.Equal(t, []string{"02"}, s.filter.Snapshot().Routes)
}

func TestRoutesMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/routes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestGetConfig(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg config.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, config.LTCVehicleURL, cfg.Feed.URL)
}

func TestStaticAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(data), "busdash")

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(data), "busdash_renders_total")
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(msg, &f))
	return f
}

func TestNewClientGetsLatestFrame(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(render.View{Routes: []string{"02"}, Status: render.StatusWaitingFeed})

	conn := dial(t, ts)
	f := readFrame(t, conn)
	assert.Equal(t, render.StatusWaitingFeed, f.View.Status)
	assert.NotZero(t, f.Stamp)
}

func TestPublishBroadcasts(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, ts)

	// Wait for registration before publishing.
	require.Eventually(t, func() bool {
		s.clientsMu.RLock()
		defer s.clientsMu.RUnlock()
		return len(s.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Publish(render.View{
		Routes: []string{"02"},
		Status: render.StatusOK,
		Buses:  []render.BusView{{Route: "02", DistanceKm: 1.5, Direction: "North"}},
	})

	f := readFrame(t, conn)
	require.Len(t, f.View.Buses, 1)
	assert.Equal(t, "North", f.View.Buses[0].Direction)
}

func TestCloseClients(t *testing.T) {
	s, ts := newTestServer(t)
	dial(t, ts)
	require.Eventually(t, func() bool {
		s.clientsMu.RLock()
		defer s.clientsMu.RUnlock()
		return len(s.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.closeClients()
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	assert.Empty(t, s.clients)
}
