package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/XuHaoJun/rvue-sub001/internal/config"
)

func initCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default rvue.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Exists(flags.dir) && !force {
				warn("%s already exists; use --force to overwrite", filepath.Join(flags.dir, config.ConfigFileName))
				return nil
			}
			path := filepath.Join(flags.dir, config.ConfigFileName)
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
