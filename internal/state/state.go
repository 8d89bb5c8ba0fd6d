package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Run statuses recorded over the lifetime of a test run.
const (
	StatusLaunched   = "launched"
	StatusRunning    = "running"
	StatusStopped    = "stopped"
	StatusTerminated = "terminated"
)

// Run is the on-disk record of a single test run. Besides the instance
// identity it keeps the IDs of the network resources created for the run so
// an operator can clean up by hand if teardown is skipped. Termination does
// not read these IDs back; it correlates resources by display name.
type Run struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider string `json:"provider"`
	ImageID  string `json:"image_id"`
	Shape    string `json:"shape"`

	InstanceID   string `json:"instance_id"`
	InstanceName string `json:"instance_name"`
	InstanceIP   string `json:"instance_ip,omitempty"`

	VcnID     string `json:"vcn_id,omitempty"`
	SubnetID  string `json:"subnet_id,omitempty"`
	GatewayID string `json:"gateway_id,omitempty"`

	Status string `json:"status"`
}

// New creates a run record stamped with the current time.
func New(provider, imageID, shape string) *Run {
	now := time.Now()
	return &Run{
		CreatedAt: now,
		UpdatedAt: now,
		Provider:  provider,
		ImageID:   imageID,
		Shape:     shape,
	}
}

// Load loads a run record from a file.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}

	return &run, nil
}

// Save writes the run record to a file, bumping UpdatedAt.
func (r *Run) Save(path string) error {
	r.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
