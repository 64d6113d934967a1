package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/XuHaoJun/rvue-sub001/internal/config"
)

// trackedModules are the libraries whose versions change rendering or
// export behaviour.
var trackedModules = []string{
	"github.com/gogpu/gg",
	"github.com/prometheus/client_golang",
	"go.opentelemetry.io/otel",
	"github.com/aws/aws-sdk-go-v2/service/s3",
}

type versionInfo struct {
	Version   string            `json:"version"`
	Commit    string            `json:"commit"`
	Built     string            `json:"built"`
	Go        string            `json:"go"`
	Platform  string            `json:"platform"`
	MaxPasses int               `json:"maxPasses"`
	Interval  string            `json:"frameInterval"`
	Raster    string            `json:"raster"`
	Layers    []string          `json:"layers"`
	Modules   map[string]string `json:"modules,omitempty"`
}

func collectVersion(cfg *config.Config, bi *debug.BuildInfo) versionInfo {
	v := versionInfo{
		Version:   version,
		Commit:    commit,
		Built:     date,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		MaxPasses: cfg.Runtime.MaxPasses,
		Interval:  cfg.Frame.Interval,
		Raster:    fmt.Sprintf("%dx%d", cfg.Raster.Width, cfg.Raster.Height),
		Layers:    cfg.Compositor.Layers,
	}
	if bi == nil {
		return v
	}
	for _, dep := range bi.Deps {
		for _, path := range trackedModules {
			if dep.Path == path {
				if v.Modules == nil {
					v.Modules = make(map[string]string)
				}
				v.Modules[path] = dep.Version
			}
		}
	}
	return v
}

func writeVersion(w io.Writer, v versionInfo) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendRows([]table.Row{
		{"version", v.Version},
		{"commit", v.Commit},
		{"built", v.Built},
		{"go", v.Go},
		{"platform", v.Platform},
	})
	tbl.AppendSeparator()
	tbl.AppendRows([]table.Row{
		{"max passes", v.MaxPasses},
		{"frame interval", v.Interval},
		{"raster", v.Raster},
		{"layers", strings.Join(v.Layers, ", ")},
	})
	if len(v.Modules) > 0 {
		tbl.AppendSeparator()
		for _, path := range trackedModules {
			if mv, ok := v.Modules[path]; ok {
				tbl.AppendRow(table.Row{path, mv})
			}
		}
	}
	tbl.Render()
}

func versionCmd(flags *globalFlags) *cobra.Command {
	var (
		short  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version, runtime settings and library versions",
		Long: `Print the build version together with the runtime settings in effect
for the working directory (pass ceiling, frame interval, raster size and
layers) and the versions of the rendering and export libraries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Println(version)
				return nil
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			bi, _ := debug.ReadBuildInfo()
			info := collectVersion(cfg, bi)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printBanner()
			writeVersion(os.Stdout, info)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
