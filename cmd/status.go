package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/logging"
	"github.com/jlausuch/img-proof/internal/provisioning"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state and address of the current instance",
	Run: func(cmd *cobra.Command, args []string) {
		_, run, provisioner := loadRun()

		fmt.Printf("Instance:  %s (%s)\n", run.InstanceName, run.InstanceID)

		oci, ok := provisioner.(*provisioning.OCIProvisioner)
		if !ok {
			fmt.Printf("Recorded:  %s\n", run.Status)
			return
		}

		ctx := context.Background()
		lifecycleState, err := oci.State(ctx)
		if err != nil {
			logging.Logger().Fatal("Failed to get instance state", zap.Error(err))
		}
		fmt.Printf("State:     %s\n", lifecycleState)

		address, err := oci.Address(ctx)
		if err != nil {
			logging.Logger().Warn("Failed to resolve address", zap.Error(err))
			return
		}
		fmt.Printf("Address:   %s\n", address)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
