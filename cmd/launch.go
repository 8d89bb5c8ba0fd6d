package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/config"
	"github.com/jlausuch/img-proof/internal/logging"
	"github.com/jlausuch/img-proof/internal/provisioning"
	"github.com/jlausuch/img-proof/internal/ssh"
	"github.com/jlausuch/img-proof/internal/state"
)

var launchImageID string

// launchCmd represents the launch command
var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch an instance of the image under test",
	Long: `Launch a compute instance of the configured image, creating the network
stack when no subnet is configured, and record the run state once the
instance is running.`,
	Run: func(cmd *cobra.Command, args []string) {
		logging.Logger().Info("Loading configuration")
		cfg, err := config.Load()
		if err != nil {
			logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
		}

		imageID := launchImageID
		if imageID == "" {
			imageID = cfg.ImageID
		}
		if imageID == "" {
			logging.Logger().Fatal("Image ID is required (set image_id in config file or pass --image)")
		}

		keyPair, err := ssh.LoadPublicKey(cfg.SSHPrivateKeyFile)
		if err != nil {
			logging.Logger().Fatal("Failed to load SSH key", zap.Error(err))
		}

		provisioner, err := provisioning.NewProvisioner(context.Background(), cfg)
		if err != nil {
			logging.Logger().Fatal("Failed to create provisioner", zap.Error(err))
		}

		ctx := context.Background()
		info, err := provisioner.Launch(ctx, provisioning.InstanceSpec{
			ImageID:      imageID,
			Shape:        cfg.InstanceShape,
			SubnetID:     cfg.SubnetID,
			Username:     cfg.SSHUser,
			SSHPublicKey: keyPair.PublicKey,
		})
		if err != nil {
			logging.Logger().Fatal("Launch failed", zap.Error(err))
		}

		run := state.New(cfg.Provider, imageID, cfg.InstanceShape)
		run.InstanceID = info.ID
		run.InstanceName = info.Name
		run.InstanceIP = info.IP
		run.Status = state.StatusLaunched
		if oci, ok := provisioner.(*provisioning.OCIProvisioner); ok {
			if stack := oci.Network(); stack != nil {
				run.VcnID = stack.VcnID
				run.SubnetID = stack.SubnetID
				run.GatewayID = stack.GatewayID
			}
		}
		if err := run.Save(cfg.StateFile); err != nil {
			logging.Logger().Warn("Failed to save run record", zap.Error(err))
		}

		logging.Logger().Info("Instance running",
			zap.String("instance_id", info.ID),
			zap.String("name", info.Name),
			zap.String("ip", info.IP))
		fmt.Printf("Instance %s (%s) is running at %s\n", info.Name, info.ID, info.IP)
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)

	launchCmd.Flags().StringVarP(&launchImageID, "image", "i", "", "Image ID to launch (overrides config)")
}
