package provisioning

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
)

// ComputeAPI is the slice of the OCI compute service used by the
// provisioner. core.ComputeClient satisfies it; tests substitute fakes.
type ComputeAPI interface {
	LaunchInstance(ctx context.Context, request core.LaunchInstanceRequest) (core.LaunchInstanceResponse, error)
	GetInstance(ctx context.Context, request core.GetInstanceRequest) (core.GetInstanceResponse, error)
	InstanceAction(ctx context.Context, request core.InstanceActionRequest) (core.InstanceActionResponse, error)
	TerminateInstance(ctx context.Context, request core.TerminateInstanceRequest) (core.TerminateInstanceResponse, error)
	ListVnicAttachments(ctx context.Context, request core.ListVnicAttachmentsRequest) (core.ListVnicAttachmentsResponse, error)
}

// VirtualNetworkAPI is the slice of the OCI virtual-network service used by
// the provisioner. core.VirtualNetworkClient satisfies it.
type VirtualNetworkAPI interface {
	GetVnic(ctx context.Context, request core.GetVnicRequest) (core.GetVnicResponse, error)

	CreateVcn(ctx context.Context, request core.CreateVcnRequest) (core.CreateVcnResponse, error)
	GetVcn(ctx context.Context, request core.GetVcnRequest) (core.GetVcnResponse, error)
	DeleteVcn(ctx context.Context, request core.DeleteVcnRequest) (core.DeleteVcnResponse, error)

	CreateSubnet(ctx context.Context, request core.CreateSubnetRequest) (core.CreateSubnetResponse, error)
	GetSubnet(ctx context.Context, request core.GetSubnetRequest) (core.GetSubnetResponse, error)
	DeleteSubnet(ctx context.Context, request core.DeleteSubnetRequest) (core.DeleteSubnetResponse, error)

	CreateInternetGateway(ctx context.Context, request core.CreateInternetGatewayRequest) (core.CreateInternetGatewayResponse, error)
	GetInternetGateway(ctx context.Context, request core.GetInternetGatewayRequest) (core.GetInternetGatewayResponse, error)
	ListInternetGateways(ctx context.Context, request core.ListInternetGatewaysRequest) (core.ListInternetGatewaysResponse, error)
	DeleteInternetGateway(ctx context.Context, request core.DeleteInternetGatewayRequest) (core.DeleteInternetGatewayResponse, error)

	GetRouteTable(ctx context.Context, request core.GetRouteTableRequest) (core.GetRouteTableResponse, error)
	UpdateRouteTable(ctx context.Context, request core.UpdateRouteTableRequest) (core.UpdateRouteTableResponse, error)
}

// isNotFound reports whether err is the provider's 404 for a resource that
// no longer exists (or never did).
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if failure, ok := common.IsServiceError(err); ok {
		return failure.GetHTTPStatusCode() == 404
	}
	return false
}
