package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/XuHaoJun/rvue-sub001/internal/errors"
)

func explainCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Explain an error code",
		Long: `Print the explanation and fix suggestion for an error code, or list
every code when none is given.

Examples:
  rvue explain
  rvue explain R001`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				tbl := table.NewWriter()
				tbl.SetOutputMirror(os.Stdout)
				tbl.SetStyle(table.StyleLight)
				tbl.AppendHeader(table.Row{"code", "category", "message"})
				for _, code := range errors.Codes() {
					t, _ := errors.Lookup(code)
					tbl.AppendRow(table.Row{code, t.Category, t.Message})
				}
				tbl.Render()
				return nil
			}

			code := strings.ToUpper(args[0])
			if _, ok := errors.Lookup(code); !ok {
				return fmt.Errorf("unknown error code %q", args[0])
			}
			e := errors.New(code)
			if asJSON {
				fmt.Println(e.FormatJSON())
				return nil
			}
			fmt.Print(e.Format())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
