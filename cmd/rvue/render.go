package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/XuHaoJun/rvue-sub001/internal/config"
)

func renderCmd(flags *globalFlags) *cobra.Command {
	var (
		frames int
		out    string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "render [scene]",
		Short: "Render a scene to PNG",
		Long: `Render a demo scene for a number of frames and write the last one
as a PNG image. One input step is fed before every frame after the
first. Frames are also archived if a snapshot store is configured.

Examples:
  rvue render counter
  rvue render list --frames 30 --out list.png
  rvue render theme --width 320 --height 200`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if width > 0 {
				cfg.Raster.Width = width
			}
			if height > 0 {
				cfg.Raster.Height = height
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			scene := "counter"
			if len(args) == 1 {
				scene = args[0]
			}
			if out == "" {
				out = scene + ".png"
			}
			return runRender(cmd.Context(), cfg, scene, frames, out)
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 1, "Number of frames to run")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output PNG path (default <scene>.png)")
	cmd.Flags().IntVar(&width, "width", 0, "Override the configured width")
	cmd.Flags().IntVar(&height, "height", 0, "Override the configured height")
	return cmd
}

func runRender(ctx context.Context, cfg *config.Config, scene string, frames int, out string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(cfg, scene)
	if err != nil {
		return err
	}
	rec, err := a.record(1)
	if err != nil {
		return err
	}

	var drawn, reused int
	for i := 0; i < max(frames, 1); i++ {
		if i > 0 {
			if err := a.step(i - 1); err != nil {
				return err
			}
		}
		res, err := a.driver.RunFrame(ctx, a.scene.Root)
		if err != nil {
			return err
		}
		drawn += res.Frame.Stats.Drawn
		reused += res.Frame.Stats.Reused
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := a.backend.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	stat, err := os.Stat(out)
	if err != nil {
		return err
	}

	success("Rendered %s (%dx%d) to %s", scene, cfg.Raster.Width, cfg.Raster.Height, out)
	info("%s frames, %s nodes drawn, %s reused, %s written",
		humanize.Comma(int64(max(frames, 1))),
		humanize.Comma(int64(drawn)),
		humanize.Comma(int64(reused)),
		humanize.Bytes(uint64(stat.Size())))
	if rec != nil {
		saved, failed := rec.Stats()
		info("archived %d frames to %s", saved, describeStore(cfg))
		if failed > 0 {
			warn("%d frames could not be archived", failed)
		}
	}
	fmt.Println()
	return nil
}
