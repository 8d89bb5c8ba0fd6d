package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/config"
	"github.com/jlausuch/img-proof/internal/logging"
	"github.com/jlausuch/img-proof/internal/provisioning"
	"github.com/jlausuch/img-proof/internal/state"
)

// loadRun resolves the instance the command should act on: the explicitly
// configured running_instance_id wins, otherwise the recorded run is used.
func loadRun() (*config.Config, *state.Run, provisioning.Provisioner) {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
	}

	run, err := state.Load(cfg.StateFile)
	if err != nil {
		if cfg.RunningInstanceID == "" {
			logging.Logger().Fatal("No run record found and no running_instance_id configured",
				zap.String("state_file", cfg.StateFile), zap.Error(err))
		}
		run = state.New(cfg.Provider, cfg.ImageID, cfg.InstanceShape)
		run.InstanceID = cfg.RunningInstanceID
	}

	if cfg.RunningInstanceID == "" {
		cfg.RunningInstanceID = run.InstanceID
	}

	provisioner, err := provisioning.NewProvisioner(context.Background(), cfg)
	if err != nil {
		logging.Logger().Fatal("Failed to create provisioner", zap.Error(err))
	}

	return cfg, run, provisioner
}

func saveRun(cfg *config.Config, run *state.Run) {
	if err := run.Save(cfg.StateFile); err != nil {
		logging.Logger().Warn("Failed to save run record", zap.Error(err))
	}
}
