package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/logging"
	"github.com/jlausuch/img-proof/internal/state"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running instance and wait until it is stopped",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, run, provisioner := loadRun()

		if err := provisioner.Stop(context.Background()); err != nil {
			logging.Logger().Fatal("Stop failed", zap.Error(err))
		}

		run.Status = state.StatusStopped
		saveRun(cfg, run)

		logging.Logger().Info("Instance stopped", zap.String("instance_id", run.InstanceID))
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
