package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/XuHaoJun/rvue-sub001/internal/config"
	"github.com/XuHaoJun/rvue-sub001/internal/demo"
	"github.com/XuHaoJun/rvue-sub001/internal/errors"
	"github.com/XuHaoJun/rvue-sub001/internal/snapshot"
	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/frame"
	"github.com/XuHaoJun/rvue-sub001/pkg/metrics"
	"github.com/XuHaoJun/rvue-sub001/pkg/raster"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
	"github.com/XuHaoJun/rvue-sub001/pkg/widget"
)

// app is one scene wired to a runtime, a compositor, a raster backend and
// a frame driver.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	runtime  *reactive.Runtime
	tree     *tree.Tree
	comp     *compositor.Compositor
	backend  *raster.Backend
	registry *prometheus.Registry
	driver   *frame.Driver
	scene    *demo.Scene
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.dir)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
		if _, err := cfg.SlogLevel(); err != nil {
			return nil, errors.New("R010").WithSubject("--log-level " + flags.logLevel).Wrap(err)
		}
	}
	return cfg, nil
}

func newApp(cfg *config.Config, sceneName string) (*app, error) {
	logger := cfg.Logger(os.Stderr)
	shaper, err := widget.NewShaper(nil, cfg.Text.CacheSize)
	if err != nil {
		return nil, err
	}

	rt := reactive.NewRuntime(
		reactive.WithMaxPasses(cfg.Runtime.MaxPasses),
		reactive.WithLogger(logger),
	)
	t := tree.New(rt, tree.WithLogger(logger))
	scene, err := demo.Build(sceneName, &demo.Env{
		Runtime: rt,
		Tree:    t,
		Kit:     widget.NewKit(shaper),
		Width:   float32(cfg.Raster.Width),
		Height:  float32(cfg.Raster.Height),
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
		metrics.WithConstLabels(prometheus.Labels{"scene": sceneName}),
		metrics.WithRegistry(registry),
	)

	comp := compositor.New(t,
		compositor.WithLogger(logger),
		compositor.WithLayers(cfg.Compositor.Layers...),
		compositor.WithPool(fragment.NewPool()),
	)
	backend := raster.New(cfg.Raster.Width, cfg.Raster.Height,
		raster.WithBackground(cfg.Background()))

	return &app{
		cfg:      cfg,
		logger:   logger,
		runtime:  rt,
		tree:     t,
		comp:     comp,
		backend:  backend,
		registry: registry,
		driver: frame.New(rt, t, comp, backend,
			frame.WithLogger(logger),
			frame.WithMetrics(collector),
		),
		scene: scene,
	}, nil
}

// step feeds input i into the next frame.
func (a *app) step(i int) error {
	return a.driver.Input(func() error { return a.scene.Step(i) })
}

// snapshotStore opens the configured archive. It returns nil when
// archiving is disabled.
func (a *app) snapshotStore() (snapshot.Store, error) {
	sc := a.cfg.Snapshot
	switch {
	case sc.Bucket != "":
		client := snapshot.NewS3Client(sc.Region, sc.Endpoint)
		return snapshot.NewS3Store(client, sc.Bucket, sc.Prefix), nil
	case sc.Dir != "":
		store, err := snapshot.NewDirStore(sc.Dir)
		if err != nil {
			return nil, errors.FromError(err, "R020").WithSubject(sc.Dir)
		}
		return store, nil
	}
	return nil, nil
}

// record archives every n-th frame if archiving is configured.
func (a *app) record(every uint64) (*snapshot.Recorder, error) {
	store, err := a.snapshotStore()
	if err != nil || store == nil {
		return nil, err
	}
	rec := snapshot.NewRecorder(store, a.backend,
		snapshot.Every(every),
		snapshot.WithLogger(a.logger))
	a.driver.OnFrame(rec.Observe)
	return rec, nil
}

func describeStore(cfg *config.Config) string {
	if cfg.Snapshot.Bucket != "" {
		return fmt.Sprintf("s3://%s/%s", cfg.Snapshot.Bucket, cfg.Snapshot.Prefix)
	}
	return cfg.Snapshot.Dir
}
