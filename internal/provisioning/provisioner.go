package provisioning

import "context"

// InstanceSpec describes the instance to launch for a test run.
type InstanceSpec struct {
	ImageID      string
	Shape        string
	SubnetID     string // optional, a network stack is created when empty
	Username     string
	SSHPublicKey string
}

// InstanceInfo describes a launched instance.
type InstanceInfo struct {
	ID    string
	Name  string
	IP    string
	State string
}

// NetworkStack holds the IDs of the network resources created for a run.
// Empty when the run attached to a pre-existing subnet.
type NetworkStack struct {
	VcnID     string
	SubnetID  string
	GatewayID string
}

// Provisioner manages one compute instance end-to-end for a test run. A
// provisioner owns at most one instance at a time; Start, Stop, Terminate
// and Address act on the instance launched (or adopted) earlier.
type Provisioner interface {
	Launch(ctx context.Context, spec InstanceSpec) (*InstanceInfo, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Terminate(ctx context.Context) error

	// Address returns the instance's public address, falling back to its
	// private address when no public one is attached.
	Address(ctx context.Context) (string, error)
}
