package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/XuHaoJun/rvue-sub001/internal/inspect"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr      string
		stepEvery time.Duration
		archive   uint64
	)

	cmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "Run a scene live with the inspector",
		Long: `Run a demo scene on the configured frame interval and serve the
inspector over HTTP:

  /tree        the component tree as JSON
  /frame       the last frame's statistics
  /frame.png   the last rendered frame
  /frames      a WebSocket stream of frame statistics
  /metrics     Prometheus metrics

Examples:
  rvue serve
  rvue serve list --step 250ms
  rvue serve theme --addr 0.0.0.0:7070`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Inspect.Addr = addr
			}
			scene := "counter"
			if len(args) == 1 {
				scene = args[0]
			}

			a, err := newApp(cfg, scene)
			if err != nil {
				return err
			}
			if _, err := a.record(max(archive, 1)); err != nil {
				return err
			}
			insp := inspect.New(a.tree, a.scene.Root,
				inspect.WithGatherer(a.registry),
				inspect.WithImage(a.backend.EncodePNG),
				inspect.WithLogger(a.logger))
			a.driver.OnFrame(insp.Observe)

			printBanner()
			fmt.Println("  serve")
			fmt.Println()
			success("Scene %s at %s per frame", scene, cfg.Interval())
			info("inspector on http://%s", cfg.Inspect.Addr)
			fmt.Println()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, insp, stepEvery)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Inspector address (default from rvue.yaml)")
	cmd.Flags().DurationVar(&stepEvery, "step", time.Second, "Interval between simulated inputs")
	cmd.Flags().Uint64Var(&archive, "archive-every", 60, "Archive one frame in this many, if a store is configured")
	return cmd
}

func runServe(parent context.Context, a *app, insp *inspect.Server, stepEvery time.Duration) error {
	g, ctx := errgroup.WithContext(parent)
	g.Go(func() error {
		return insp.ListenAndServe(ctx, a.cfg.Inspect.Addr)
	})
	g.Go(func() error {
		return a.driver.Run(ctx, a.scene.Root, a.cfg.Interval())
	})
	g.Go(func() error {
		ticker := time.NewTicker(stepEvery)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n := i
				if !a.driver.Dispatch(func() error { return a.scene.Step(n) }) {
					a.logger.Warn("input dropped", "step", n)
				}
			}
		}
	})

	err := g.Wait()
	fmt.Println("\n  Shutting down...")
	if parent.Err() != nil {
		return nil
	}
	return err
}
