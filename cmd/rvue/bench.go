package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/XuHaoJun/rvue-sub001/internal/config"
	"github.com/XuHaoJun/rvue-sub001/internal/demo"
)

func benchCmd(flags *globalFlags) *cobra.Command {
	var (
		frames int
		warmup int
	)

	cmd := &cobra.Command{
		Use:   "bench [scene...]",
		Short: "Measure frame times and cache reuse",
		Long: `Run scenes for a number of frames, one input step per frame, and
report frame time percentiles next to how much of each frame was
served from cache. All scenes run when none are named.

Examples:
  rvue bench
  rvue bench list --frames 5000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			scenes := args
			if len(scenes) == 0 {
				scenes = demo.Names()
			}
			return runBench(cmd.Context(), cfg, scenes, frames, warmup)
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 1000, "Frames measured per scene")
	cmd.Flags().IntVar(&warmup, "warmup", 10, "Frames run before measuring")
	return cmd
}

type benchTotals struct {
	drawn, reused, layersReused int
	appended                    int
}

func runBench(ctx context.Context, cfg *config.Config, scenes []string, frames, warmup int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	frames = max(frames, 1)

	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("rvue frames (%dx%d)", cfg.Raster.Width, cfg.Raster.Height))
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"scene", "frames", "avg", "min", "p75", "p99", "max", "drawn", "reused", "reuse %", "layers reused", "appended"})

	for _, scene := range scenes {
		a, err := newApp(cfg, scene)
		if err != nil {
			return err
		}
		step := 0
		run := func() (time.Duration, *benchTotals, error) {
			if err := a.step(step); err != nil {
				return 0, nil, err
			}
			step++
			start := time.Now()
			res, err := a.driver.RunFrame(ctx, a.scene.Root)
			elapsed := time.Since(start)
			if err != nil {
				return 0, nil, err
			}
			s := res.Frame.Stats
			return elapsed, &benchTotals{
				drawn:        s.Drawn,
				reused:       s.Reused,
				layersReused: s.LayersReused,
				appended:     s.AppendedBytes,
			}, nil
		}

		for range warmup {
			if _, _, err := run(); err != nil {
				return err
			}
		}

		tach := tachymeter.New(&tachymeter.Config{Size: frames})
		var sum benchTotals
		for range frames {
			d, t, err := run()
			if err != nil {
				return err
			}
			tach.AddTime(d)
			sum.drawn += t.drawn
			sum.reused += t.reused
			sum.layersReused += t.layersReused
			sum.appended += t.appended
		}

		calc := tach.Calc()
		reuse := 0.0
		if total := sum.drawn + sum.reused; total > 0 {
			reuse = 100 * float64(sum.reused) / float64(total)
		}
		tbl.AppendRow(table.Row{
			scene,
			humanize.Comma(int64(frames)),
			calc.Time.Avg,
			calc.Time.Min,
			calc.Time.P75,
			calc.Time.P99,
			calc.Time.Max,
			humanize.Comma(int64(sum.drawn)),
			humanize.Comma(int64(sum.reused)),
			fmt.Sprintf("%.1f", reuse),
			humanize.Comma(int64(sum.layersReused)),
			humanize.Bytes(uint64(sum.appended)),
		})
	}

	tbl.Render()
	return nil
}
