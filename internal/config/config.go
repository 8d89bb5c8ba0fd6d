package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Provider identifiers accepted in the "provider" field.
const (
	ProviderOCI = "oci"
	ProviderEC2 = "ec2"
)

// Config contains the per-run provisioning configuration. It is loaded once
// at startup and never mutated afterwards.
type Config struct {
	// Cloud backend to use
	Provider string `yaml:"provider"`

	// Image under test and the shape to launch it with
	ImageID       string `yaml:"image_id"`
	InstanceShape string `yaml:"instance_shape"`

	// OCI placement
	Region             string `yaml:"region"`
	CompartmentID      string `yaml:"compartment_id"`
	AvailabilityDomain string `yaml:"availability_domain"`

	// Optional pre-existing subnet; a fresh network stack is created when empty
	SubnetID string `yaml:"subnet_id"`

	// SSH access injected into the instance user-data
	SSHUser           string `yaml:"ssh_user"`
	SSHPrivateKeyFile string `yaml:"ssh_private_key_file"`

	// Act on an already-running instance instead of launching a new one
	RunningInstanceID string `yaml:"running_instance_id"`

	// OCI API credentials (profile-based config file)
	OCIConfigFile string `yaml:"oci_config_file"`
	OCIProfile    string `yaml:"oci_profile"`

	// Polling behaviour
	TimeoutSeconds      int `yaml:"timeout_seconds"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// Display-name prefix for run-scoped resources
	NamePrefix string `yaml:"name_prefix"`

	// Run record location
	StateFile string `yaml:"state_file"`
}

// Timeout returns the state-polling deadline as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval returns the polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Load loads configuration from the YAML file pointed at by CONFIG_PATH
// (default imgproof.yaml), applies defaults, expands environment variables
// and validates required fields.
func Load() (*Config, error) {
	config := &Config{
		Provider:            ProviderOCI,
		InstanceShape:       "VM.Standard2.1",
		SSHUser:             "opc",
		TimeoutSeconds:      600,
		PollIntervalSeconds: 10,
		NamePrefix:          "oci-ipa-test",
		StateFile:           "imgproof-run.json",
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "imgproof.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.ImageID = os.ExpandEnv(config.ImageID)
	config.CompartmentID = os.ExpandEnv(config.CompartmentID)
	config.AvailabilityDomain = os.ExpandEnv(config.AvailabilityDomain)
	config.SubnetID = os.ExpandEnv(config.SubnetID)
	config.SSHPrivateKeyFile = os.ExpandEnv(config.SSHPrivateKeyFile)
	config.OCIConfigFile = os.ExpandEnv(config.OCIConfigFile)

	// Environment overrides for values usually kept out of config files
	if v := os.Getenv("OCI_COMPARTMENT_ID"); v != "" {
		config.CompartmentID = v
	}
	if v := os.Getenv("OCI_AVAILABILITY_DOMAIN"); v != "" {
		config.AvailabilityDomain = v
	}

	if config.Provider == ProviderOCI {
		if config.CompartmentID == "" {
			return nil, fmt.Errorf("compartment ID is required (set compartment_id in config file or OCI_COMPARTMENT_ID environment variable)")
		}
		if config.AvailabilityDomain == "" {
			return nil, fmt.Errorf("availability domain is required (set availability_domain in config file or OCI_AVAILABILITY_DOMAIN environment variable)")
		}
		if config.SSHPrivateKeyFile == "" {
			return nil, fmt.Errorf("SSH private key file is required to connect to instance")
		}
	}

	return config, nil
}
