package main

import (
	"fmt"
	"os"

	"udm-tms-service/config"
	"udm-tms-service/internal/util"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "udm-tms-service",
	Short: "UDM/TMS track fitting traceability server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if err := util.InitLogger(cfg.Server.Env, cfg.Server.Version, cfg.Server.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		util.SyncLogger()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
