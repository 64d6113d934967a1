package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/XuHaoJun/rvue-sub001/internal/demo"
)

func scenesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List the demo scenes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tbl := table.NewWriter()
			tbl.SetOutputMirror(os.Stdout)
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"scene", "description"})
			for _, name := range demo.Names() {
				tbl.AppendRow(table.Row{name, demo.About(name)})
			}
			tbl.Render()
		},
	}
}
