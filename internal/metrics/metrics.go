package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaunagostinho/busdash/internal/render"
)

type Collector struct {
	reg *prometheus.Registry

	Fetches       *prometheus.CounterVec // poller label
	FetchErrors   *prometheus.CounterVec // poller label
	FetchDuration *prometheus.HistogramVec

	Renders        prometheus.Counter
	VisibleBuses   prometheus.Gauge
	NearestBusKm   prometheus.Gauge
	FrameStatus    *prometheus.GaugeVec // status label, 1 for the current one
	RenderInterval prometheus.Gauge     // seconds
}

func NewCollector(renderInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busdash_fetches_total",
			Help: "Fetch attempts per poller.",
		}, []string{"poller"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busdash_fetch_errors_total",
			Help: "Failed fetches per poller.",
		}, []string{"poller"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busdash_fetch_duration_seconds",
			Help:    "Time spent in a single fetch.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"poller"}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdash_renders_total",
			Help: "Frames rendered.",
		}),
		VisibleBuses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busdash_visible_buses",
			Help: "Buses on the selected routes in the last frame.",
		}),
		NearestBusKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busdash_nearest_bus_km",
			Help: "Distance to the nearest selected bus, -1 if none.",
		}),
		FrameStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "busdash_frame_status",
			Help: "1 for the status of the last frame, 0 otherwise.",
		}, []string{"status"}),
		RenderInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busdash_render_interval_seconds",
			Help: "Render cadence in seconds.",
		}),
	}

	reg.MustRegister(
		c.Fetches, c.FetchErrors, c.FetchDuration,
		c.Renders, c.VisibleBuses, c.NearestBusKm, c.FrameStatus, c.RenderInterval,
	)

	c.RenderInterval.Set(renderInterval.Seconds())
	c.NearestBusKm.Set(-1)
	return c
}

// ObserveFetch records one poller attempt.
func (c *Collector) ObserveFetch(poller string, d time.Duration, err error) {
	c.Fetches.WithLabelValues(poller).Inc()
	c.FetchDuration.WithLabelValues(poller).Observe(d.Seconds())
	if err != nil {
		c.FetchErrors.WithLabelValues(poller).Inc()
	}
}

var statuses = []render.Status{
	render.StatusOK, render.StatusNoRoutes, render.StatusWaitingFeed, render.StatusWaitingLocation,
}

// Publish records the outcome of one frame.
func (c *Collector) Publish(v render.View) {
	c.Renders.Inc()
	c.VisibleBuses.Set(float64(len(v.Buses)))
	if b, ok := v.Nearest(); ok {
		c.NearestBusKm.Set(b.DistanceKm)
	} else {
		c.NearestBusKm.Set(-1)
	}
	for _, s := range statuses {
		val := 0.0
		if s == v.Status {
			val = 1
		}
		c.FrameStatus.WithLabelValues(string(s)).Set(val)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
