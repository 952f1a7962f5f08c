package cmd

import (
	"fmt"

	"github.com/derektruong/cloudxfer"
	"github.com/derektruong/cloudxfer/config"
	"github.com/spf13/cobra"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Delete abandoned chunk folders once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		transfers, closeDB, err := openTransfers()
		if err != nil {
			return
		}
		defer closeDB()

		registry, err := config.BuildRegistry(cfg)
		if err != nil {
			return
		}
		deleted, err := cloudxfer.NewReaper(logger, transfers, registry,
			cloudxfer.WithScratchTTL(cfg.Engine.ScratchTTL),
		).Sweep(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d chunk folders\n", deleted)
		return
	},
}
