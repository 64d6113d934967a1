package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFrame(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))

	c.ObserveFrame(FrameSample{
		Total:         2 * time.Millisecond,
		Settle:        time.Millisecond,
		Composite:     500 * time.Microsecond,
		Present:       100 * time.Microsecond,
		Drawn:         3,
		Reused:        5,
		LayersReused:  1,
		AppendedBytes: 1024,
		EffectRuns:    4,
		Nodes:         9,
	})
	c.ObserveFrame(FrameSample{Status: StatusFallback, DrawFailed: true, Overruns: 1, Nodes: 9})

	tests := []struct {
		name string
		got  prometheus.Collector
		want float64
	}{
		{"presented", c.frames.WithLabelValues(StatusPresented), 1},
		{"fallback", c.frames.WithLabelValues(StatusFallback), 1},
		{"drawn", c.nodes.WithLabelValues("drawn"), 3},
		{"reused", c.nodes.WithLabelValues("reused"), 5},
		{"layers", c.layersReused, 1},
		{"effects", c.effectRuns, 4},
		{"overruns", c.overruns, 1},
		{"failures", c.drawFailures, 1},
		{"tree", c.treeNodes, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.got); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(c.phaseDuration); n != 4 {
		t.Errorf("phase series = %d, want 4 (total, settle, composite, present)", n)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObserveFrame(FrameSample{Drawn: 1})
}

func TestSeparateRegistries(t *testing.T) {
	// Two collectors on two registries must not collide.
	New(WithRegistry(prometheus.NewRegistry()))
	New(WithRegistry(prometheus.NewRegistry()))
}
