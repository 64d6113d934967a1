// Package metrics exports frame and runtime counters to Prometheus.
//
// A Collector is fed one FrameSample per frame by the frame driver:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg))
//	d := frame.New(rt, t, comp, backend, frame.WithMetrics(m))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes used as the status label.
const (
	StatusPresented = "presented"
	StatusFallback  = "fallback"
	StatusFailed    = "failed"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "rvue").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for phase durations.
	// Default: 50µs to ~100ms, exponential.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "rvue",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// FrameSample is what one frame reports.
type FrameSample struct {
	Status string

	Total     time.Duration
	Settle    time.Duration
	Composite time.Duration
	Present   time.Duration

	Visited       int
	Drawn         int
	Reused        int
	LayersReused  int
	AppendedBytes int

	// Runtime counter deltas since the previous frame.
	EffectRuns uint64
	Overruns   uint64

	Nodes      int
	DrawFailed bool
}

// Collector holds the registered collectors.
type Collector struct {
	frames        *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	nodes         *prometheus.CounterVec
	layersReused  prometheus.Counter
	appended      prometheus.Histogram
	effectRuns    prometheus.Counter
	overruns      prometheus.Counter
	drawFailures  prometheus.Counter
	treeNodes     prometheus.Gauge
}

// New registers the collectors with the configured registry. Registering
// twice with the same registry panics, as promauto does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		frames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "frames_total",
				Help:        "Total frames by outcome",
				ConstLabels: config.ConstLabels,
			},
			[]string{"status"},
		),
		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "frame_phase_duration_seconds",
				Help:        "Frame phase duration in seconds",
				ConstLabels: config.ConstLabels,
				Buckets:     config.Buckets,
			},
			[]string{"phase"},
		),
		nodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "nodes_total",
				Help:        "Nodes handled by the compositor, by action (drawn, reused)",
				ConstLabels: config.ConstLabels,
			},
			[]string{"action"},
		),
		layersReused: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "layers_reused_total",
			Help:        "Layers reused without visiting any node",
			ConstLabels: config.ConstLabels,
		}),
		appended: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_appended_bytes",
			Help:        "Fragment bytes appended per frame",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(256, 4, 8),
		}),
		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Effect executions",
			ConstLabels: config.ConstLabels,
		}),
		overruns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_overruns_total",
			Help:        "Flushes abandoned at the pass ceiling",
			ConstLabels: config.ConstLabels,
		}),
		drawFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "draw_failures_total",
			Help:        "Frames that failed to regenerate a fragment",
			ConstLabels: config.ConstLabels,
		}),
		treeNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tree_nodes",
			Help:        "Live nodes in the component tree",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveFrame records one frame. A nil Collector is a no-op.
func (c *Collector) ObserveFrame(s FrameSample) {
	if c == nil {
		return
	}
	status := s.Status
	if status == "" {
		status = StatusPresented
	}
	c.frames.WithLabelValues(status).Inc()

	c.phaseDuration.WithLabelValues("total").Observe(s.Total.Seconds())
	// Phases that did not run are not observed.
	for _, p := range [...]struct {
		name string
		d    time.Duration
	}{{"settle", s.Settle}, {"composite", s.Composite}, {"present", s.Present}} {
		if p.d > 0 {
			c.phaseDuration.WithLabelValues(p.name).Observe(p.d.Seconds())
		}
	}

	c.nodes.WithLabelValues("drawn").Add(float64(s.Drawn))
	c.nodes.WithLabelValues("reused").Add(float64(s.Reused))
	c.layersReused.Add(float64(s.LayersReused))
	if s.AppendedBytes > 0 {
		c.appended.Observe(float64(s.AppendedBytes))
	}
	c.effectRuns.Add(float64(s.EffectRuns))
	c.overruns.Add(float64(s.Overruns))
	if s.DrawFailed {
		c.drawFailures.Inc()
	}
	c.treeNodes.Set(float64(s.Nodes))
}
