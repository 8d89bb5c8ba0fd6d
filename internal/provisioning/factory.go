package provisioning

import (
	"context"
	"fmt"
	"os"

	"github.com/jlausuch/img-proof/internal/config"
)

// NewProvisioner creates a provisioner for the configured cloud backend.
func NewProvisioner(ctx context.Context, cfg *config.Config) (Provisioner, error) {
	switch cfg.Provider {
	case config.ProviderOCI:
		credentials, err := ResolveCredentials(cfg.OCIConfigFile, cfg.OCIProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve OCI credentials: %w", err)
		}

		return NewOCIProvisioner(credentials, OCIOptions{
			CompartmentID:      cfg.CompartmentID,
			AvailabilityDomain: cfg.AvailabilityDomain,
			NamePrefix:         cfg.NamePrefix,
			RunningInstanceID:  cfg.RunningInstanceID,
			PollInterval:       cfg.PollInterval(),
			Timeout:            cfg.Timeout(),
		})

	case config.ProviderEC2:
		return NewEC2Provisioner(ctx, cfg.Region,
			os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"))

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}
