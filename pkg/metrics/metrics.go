// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-face/pkg/face"
)

const namespace = "face"

// Collector records frame loop and face events. It implements
// frame.Observer and face.Observer.
type Collector struct {
	registry *prometheus.Registry

	Frames        prometheus.Counter
	FrameDuration prometheus.Histogram
	Emissions     *prometheus.CounterVec
	Blends        prometheus.Counter
	Rerolls       prometheus.Counter
	FieldSize     prometheus.Gauge
	Clients       prometheus.Gauge
}

// New creates a collector on its own registry. Go runtime and process
// collectors are included when runtime is true.
func New(runtime bool) *Collector {
	reg := prometheus.NewRegistry()
	if runtime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)
	return &Collector{
		registry: reg,

		Frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames run",
		}),
		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Wall time spent computing a frame",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
		}),
		Emissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emissions_total",
			Help:      "Output vectors emitted by each driver",
		}, []string{"channel"}),
		Blends: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blends_total",
			Help:      "Blend transitions started by the arbiter",
		}),
		Rerolls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gaze_rerolls_total",
			Help:      "Gaze target selections",
		}),
		FieldSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gaze_candidates",
			Help:      "Objects currently in the interest field",
		}),
		Clients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected weight stream clients",
		}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// FrameDone records one frame.
func (c *Collector) FrameDone(_ float64, took time.Duration) {
	c.Frames.Inc()
	c.FrameDuration.Observe(took.Seconds())
}

// Emitted counts a driver emission.
func (c *Collector) Emitted(ch face.Channel) { c.Emissions.WithLabelValues(ch.String()).Inc() }

// Blended counts a blend transition.
func (c *Collector) Blended() { c.Blends.Inc() }

// Rerolled counts a gaze selection.
func (c *Collector) Rerolled() { c.Rerolls.Inc() }

// Candidates sets the interest field size.
func (c *Collector) Candidates(n int) { c.FieldSize.Set(float64(n)) }
