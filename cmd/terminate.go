package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/logging"
	"github.com/jlausuch/img-proof/internal/state"
)

// terminateCmd represents the terminate command
var terminateCmd = &cobra.Command{
	Use:   "terminate",
	Short: "Terminate the instance and tear down its network stack",
	Long: `Terminate the instance, wait until it is gone and delete the network
resources created for the run in reverse order. Resources that cannot be
correlated to the run are left behind.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, run, provisioner := loadRun()

		if err := provisioner.Terminate(context.Background()); err != nil {
			logging.Logger().Fatal("Terminate failed", zap.Error(err))
		}

		run.Status = state.StatusTerminated
		saveRun(cfg, run)

		logging.Logger().Info("Instance terminated", zap.String("instance_id", run.InstanceID))
	},
}

func init() {
	rootCmd.AddCommand(terminateCmd)
}
