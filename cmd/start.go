package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/logging"
	"github.com/jlausuch/img-proof/internal/state"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the stopped instance and wait until it is running",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, run, provisioner := loadRun()

		if err := provisioner.Start(context.Background()); err != nil {
			logging.Logger().Fatal("Start failed", zap.Error(err))
		}

		run.Status = state.StatusRunning
		saveRun(cfg, run)

		logging.Logger().Info("Instance running", zap.String("instance_id", run.InstanceID))
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
