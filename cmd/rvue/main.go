package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/XuHaoJun/rvue-sub001/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┬  ┬┬ ┬┌─┐
  ├┬┘└┐┌┘│ │├┤
  ┴└─ └┘ └─┘└─┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	dir      string
	logLevel string
	noColor  bool
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "rvue",
		Short: "A retained-mode UI runtime with fine-grained reactivity",
		Long: `rvue drives retained component trees from reactive signals.

Writes to signals re-run only the effects that read them, effects
mark only the nodes they touch dirty, and the compositor reuses every
cached fragment it can. This command runs the bundled demo scenes:

  • render scenes to PNG
  • serve a live scene with an HTTP inspector
  • benchmark frame times and cache reuse`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				errors.DisableColors()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", ".", "Directory holding rvue.yaml and .env")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		renderCmd(&flags),
		serveCmd(&flags),
		benchCmd(&flags),
		scenesCmd(),
		explainCmd(),
		initCmd(&flags),
		versionCmd(&flags),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(errors.Classify(err))
		os.Exit(1)
	}
}

// printBanner prints the rvue banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
