package provisioning

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/logging"
)

// Default shape and SSH user for OCI images.
const (
	OCIDefaultShape = "VM.Standard2.1"
	OCIDefaultUser  = "opc"
)

// OCIOptions configures an OCIProvisioner. CompartmentID and
// AvailabilityDomain are required.
type OCIOptions struct {
	CompartmentID      string
	AvailabilityDomain string
	NamePrefix         string

	// Adopt an already-running instance instead of launching a new one
	RunningInstanceID string

	PollInterval time.Duration
	Timeout      time.Duration
}

// OCIProvisioner drives one OCI compute instance and its run-scoped network
// stack through launch, start/stop, address resolution and teardown.
type OCIProvisioner struct {
	compute ComputeAPI
	vnet    VirtualNetworkAPI
	waiter  *Waiter

	compartmentID      string
	availabilityDomain string
	namePrefix         string

	instanceID   string
	instanceName string
	instanceIP   string
	network      *NetworkStack
}

// NewOCIProvisioner creates a provisioner backed by real OCI clients built
// from the given credentials.
func NewOCIProvisioner(credentials common.ConfigurationProvider, opts OCIOptions) (*OCIProvisioner, error) {
	compute, err := core.NewComputeClientWithConfigurationProvider(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}

	vnet, err := core.NewVirtualNetworkClientWithConfigurationProvider(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual network client: %w", err)
	}

	return NewOCIProvisionerWithClients(compute, vnet, opts)
}

// NewOCIProvisionerWithClients creates a provisioner on top of pre-built
// clients. Tests use it to substitute fakes.
func NewOCIProvisionerWithClients(compute ComputeAPI, vnet VirtualNetworkAPI, opts OCIOptions) (*OCIProvisioner, error) {
	if opts.CompartmentID == "" {
		return nil, provisionErrorf("compartment ID is required to connect to OCI")
	}
	if opts.AvailabilityDomain == "" {
		return nil, provisionErrorf("availability domain is required to connect to OCI")
	}

	if opts.NamePrefix == "" {
		opts.NamePrefix = "oci-ipa-test"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}

	return &OCIProvisioner{
		compute:            compute,
		vnet:               vnet,
		waiter:             NewWaiter(opts.PollInterval, opts.Timeout),
		compartmentID:      opts.CompartmentID,
		availabilityDomain: opts.AvailabilityDomain,
		namePrefix:         opts.NamePrefix,
		instanceID:         opts.RunningInstanceID,
	}, nil
}

// InstanceID returns the ID of the instance this provisioner acts on.
func (p *OCIProvisioner) InstanceID() string {
	return p.instanceID
}

// InstanceName returns the generated display name of the launched instance.
func (p *OCIProvisioner) InstanceName() string {
	return p.instanceName
}

// Network returns the IDs of the network stack created at launch time, or
// nil when the instance attached to a pre-existing subnet.
func (p *OCIProvisioner) Network() *NetworkStack {
	return p.network
}

// Launch creates the network stack (unless a subnet is supplied), launches
// an instance of the given image and blocks until it is running.
func (p *OCIProvisioner) Launch(ctx context.Context, spec InstanceSpec) (*InstanceInfo, error) {
	if spec.ImageID == "" {
		return nil, provisionErrorf("image ID is required to launch an instance")
	}
	if spec.Shape == "" {
		spec.Shape = OCIDefaultShape
	}
	if spec.Username == "" {
		spec.Username = OCIDefaultUser
	}

	displayName := p.generateDisplayName()

	subnetID := spec.SubnetID
	if subnetID == "" {
		stack, err := p.createNetworkStack(ctx, displayName)
		if err != nil {
			return nil, err
		}
		p.network = stack
		subnetID = stack.SubnetID
	}

	userData, err := GenerateCloudConfig(spec.Username, spec.SSHPublicKey)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"user_data":           base64.StdEncoding.EncodeToString([]byte(userData)),
		"ssh_authorized_keys": spec.SSHPublicKey,
	}

	logging.Logger().Info("Launching instance",
		zap.String("name", displayName),
		zap.String("image_id", spec.ImageID),
		zap.String("shape", spec.Shape))

	resp, err := p.compute.LaunchInstance(ctx, core.LaunchInstanceRequest{
		LaunchInstanceDetails: core.LaunchInstanceDetails{
			DisplayName:        common.String(displayName),
			CompartmentId:      common.String(p.compartmentID),
			AvailabilityDomain: common.String(p.availabilityDomain),
			Shape:              common.String(spec.Shape),
			Metadata:           metadata,
			SourceDetails: core.InstanceSourceViaImageDetails{
				ImageId: common.String(spec.ImageID),
			},
			CreateVnicDetails: &core.CreateVnicDetails{
				SubnetId: common.String(subnetID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch instance: %w", err)
	}

	p.instanceID = *resp.Instance.Id
	p.instanceName = displayName

	if err := p.waitInstanceState(ctx, core.InstanceLifecycleStateRunning, false); err != nil {
		return nil, err
	}

	ip, err := p.Address(ctx)
	if err != nil {
		return nil, err
	}

	return &InstanceInfo{
		ID:    p.instanceID,
		Name:  displayName,
		IP:    ip,
		State: string(core.InstanceLifecycleStateRunning),
	}, nil
}

// Start issues a START action and blocks until the instance is running.
func (p *OCIProvisioner) Start(ctx context.Context) error {
	return p.instanceAction(ctx, core.InstanceActionActionStart, core.InstanceLifecycleStateRunning)
}

// Stop issues a STOP action and blocks until the instance is stopped.
func (p *OCIProvisioner) Stop(ctx context.Context) error {
	return p.instanceAction(ctx, core.InstanceActionActionStop, core.InstanceLifecycleStateStopped)
}

func (p *OCIProvisioner) instanceAction(ctx context.Context, action core.InstanceActionActionEnum, expected core.InstanceLifecycleStateEnum) error {
	if _, err := p.getInstance(ctx); err != nil {
		return err
	}

	_, err := p.compute.InstanceAction(ctx, core.InstanceActionRequest{
		InstanceId: common.String(p.instanceID),
		Action:     action,
	})
	if err != nil {
		return fmt.Errorf("instance action %s failed: %w", action, err)
	}

	return p.waitInstanceState(ctx, expected, false)
}

// State returns the instance's current lifecycle state.
func (p *OCIProvisioner) State(ctx context.Context) (string, error) {
	instance, err := p.getInstance(ctx)
	if err != nil {
		return "", err
	}
	return string(instance.LifecycleState), nil
}

// Address enumerates the instance's VNIC attachments and returns the first
// public address found, falling back to the first private address. The
// cached value is refreshed on every call.
func (p *OCIProvisioner) Address(ctx context.Context) (string, error) {
	instance, err := p.getInstance(ctx)
	if err != nil {
		return "", err
	}
	p.instanceIP = ""

	attachments, err := p.listVnicAttachments(ctx, *instance.CompartmentId)
	if err != nil {
		return "", err
	}

	var private string
	for _, attachment := range attachments {
		if attachment.VnicId == nil {
			continue
		}

		resp, err := p.vnet.GetVnic(ctx, core.GetVnicRequest{VnicId: attachment.VnicId})
		if err != nil {
			return "", fmt.Errorf("failed to get VNIC: %w", err)
		}

		if resp.Vnic.PublicIp != nil && *resp.Vnic.PublicIp != "" {
			p.instanceIP = *resp.Vnic.PublicIp
			return p.instanceIP, nil
		}
		if private == "" && resp.Vnic.PrivateIp != nil && *resp.Vnic.PrivateIp != "" {
			private = *resp.Vnic.PrivateIp
		}
	}

	if private != "" {
		p.instanceIP = private
		return private, nil
	}

	return "", &AddressNotFoundError{InstanceID: p.instanceID}
}

// Terminate terminates the instance, waits for it to be gone and then tears
// down the network stack correlated to it by display name. When no matching
// subnet is found among the former attachments the teardown is skipped.
func (p *OCIProvisioner) Terminate(ctx context.Context) error {
	instance, err := p.getInstance(ctx)
	if err != nil {
		return err
	}

	name := p.instanceName
	if instance.DisplayName != nil {
		name = *instance.DisplayName
	}

	logging.Logger().Info("Terminating instance",
		zap.String("instance_id", p.instanceID),
		zap.String("name", name))

	_, err = p.compute.TerminateInstance(ctx, core.TerminateInstanceRequest{
		InstanceId: common.String(p.instanceID),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to terminate instance: %w", err)
	}

	if err := p.waitInstanceState(ctx, core.InstanceLifecycleStateTerminated, true); err != nil {
		return err
	}

	attachments, err := p.listVnicAttachments(ctx, *instance.CompartmentId)
	if err != nil {
		return err
	}

	return p.teardownNetworkStack(ctx, attachments, name)
}

func (p *OCIProvisioner) generateDisplayName() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", p.namePrefix, suffix)
}

// getInstance retrieves the instance this provisioner acts on.
func (p *OCIProvisioner) getInstance(ctx context.Context) (*core.Instance, error) {
	if p.instanceID == "" {
		return nil, provisionErrorf("no running instance, launch one first")
	}

	resp, err := p.compute.GetInstance(ctx, core.GetInstanceRequest{
		InstanceId: common.String(p.instanceID),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, provisionErrorf("instance with ID %s not found", p.instanceID)
		}
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return &resp.Instance, nil
}

func (p *OCIProvisioner) waitInstanceState(ctx context.Context, expected core.InstanceLifecycleStateEnum, missingOK bool) error {
	return p.waiter.WaitForState(ctx, string(expected), missingOK,
		func(ctx context.Context) (string, bool, error) {
			resp, err := p.compute.GetInstance(ctx, core.GetInstanceRequest{
				InstanceId: common.String(p.instanceID),
			})
			if err != nil {
				if isNotFound(err) {
					return "", false, nil
				}
				return "", false, fmt.Errorf("failed to get instance: %w", err)
			}
			return string(resp.Instance.LifecycleState), true, nil
		})
}

func (p *OCIProvisioner) listVnicAttachments(ctx context.Context, compartmentID string) ([]core.VnicAttachment, error) {
	var items []core.VnicAttachment
	var page *string

	for {
		resp, err := p.compute.ListVnicAttachments(ctx, core.ListVnicAttachmentsRequest{
			CompartmentId: common.String(compartmentID),
			InstanceId:    common.String(p.instanceID),
			Page:          page,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list VNIC attachments: %w", err)
		}

		items = append(items, resp.Items...)
		if resp.OpcNextPage == nil {
			break
		}
		page = resp.OpcNextPage
	}

	return items, nil
}
