// Package cmd implements the cloudxfer command line.
package cmd

import (
	"os"

	"github.com/derektruong/cloudxfer/config"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var (
	configPath string

	// set by the persistent pre-run of every command
	cfg    *config.Config
	logger logr.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cloudxfer",
	Short: "Durable background transfers between local files and cloud storage accounts",
	Long: `cloudxfer queues uploads and downloads in a local database and runs
them in the background with "cloudxfer run". Queued records survive restarts,
interrupted resumable uploads continue from the server offset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg, err = config.Load(configPath); err != nil {
			return
		}
		logger, err = newLogger(cfg.Logging)
		return
	},
}

// Execute runs the command line, called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default is "+config.DefaultConfigPath()+")")

	rootCmd.AddCommand(runCmd, uploadCmd, downloadCmd, listCmd, retryCmd, cancelCmd, reapCmd)
}
