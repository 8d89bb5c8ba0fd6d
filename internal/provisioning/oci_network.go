package provisioning

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"go.uber.org/zap"

	"github.com/jlausuch/img-proof/internal/logging"
)

const (
	// A /29 is enough for one test instance
	defaultVcnCidr = "10.0.0.0/29"
	anywhereCidr   = "0.0.0.0/0"
)

// createNetworkStack provisions the minimal network path for one instance:
// VCN, subnet, internet gateway and a default route through the gateway, in
// that order, waiting for each resource to become available before the next
// step. All resources share the run's display-name prefix.
func (p *OCIProvisioner) createNetworkStack(ctx context.Context, displayName string) (*NetworkStack, error) {
	vcn, err := p.createVcn(ctx, displayName)
	if err != nil {
		return nil, err
	}

	subnet, err := p.createSubnet(ctx, vcn, displayName)
	if err != nil {
		return nil, err
	}

	gateway, err := p.createInternetGateway(ctx, vcn, displayName)
	if err != nil {
		return nil, err
	}

	return &NetworkStack{
		VcnID:     *vcn.Id,
		SubnetID:  *subnet.Id,
		GatewayID: *gateway.Id,
	}, nil
}

func (p *OCIProvisioner) createVcn(ctx context.Context, displayName string) (*core.Vcn, error) {
	resp, err := p.vnet.CreateVcn(ctx, core.CreateVcnRequest{
		CreateVcnDetails: core.CreateVcnDetails{
			CidrBlock:     common.String(defaultVcnCidr),
			CompartmentId: common.String(p.compartmentID),
			DisplayName:   common.String(displayName + "-vnet"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create VCN: %w", err)
	}

	vcn := resp.Vcn
	if err := p.waitVcnState(ctx, *vcn.Id, core.VcnLifecycleStateAvailable, false); err != nil {
		return nil, err
	}

	return &vcn, nil
}

func (p *OCIProvisioner) createSubnet(ctx context.Context, vcn *core.Vcn, displayName string) (*core.Subnet, error) {
	resp, err := p.vnet.CreateSubnet(ctx, core.CreateSubnetRequest{
		CreateSubnetDetails: core.CreateSubnetDetails{
			CompartmentId:      vcn.CompartmentId,
			AvailabilityDomain: common.String(p.availabilityDomain),
			DisplayName:        common.String(displayName + "-subnet"),
			VcnId:              vcn.Id,
			CidrBlock:          vcn.CidrBlock,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet: %w", err)
	}

	subnet := resp.Subnet
	if err := p.waitSubnetState(ctx, *subnet.Id, core.SubnetLifecycleStateAvailable, false); err != nil {
		return nil, err
	}

	return &subnet, nil
}

func (p *OCIProvisioner) createInternetGateway(ctx context.Context, vcn *core.Vcn, displayName string) (*core.InternetGateway, error) {
	resp, err := p.vnet.CreateInternetGateway(ctx, core.CreateInternetGatewayRequest{
		CreateInternetGatewayDetails: core.CreateInternetGatewayDetails{
			DisplayName:   common.String(displayName + "-gateway"),
			CompartmentId: vcn.CompartmentId,
			IsEnabled:     common.Bool(true),
			VcnId:         vcn.Id,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create internet gateway: %w", err)
	}

	gateway := resp.InternetGateway
	if err := p.waitGatewayState(ctx, *gateway.Id, core.InternetGatewayLifecycleStateAvailable, false); err != nil {
		return nil, err
	}

	if err := p.addRouteRuleToGateway(ctx, &gateway, vcn); err != nil {
		return nil, err
	}

	return &gateway, nil
}

// addRouteRuleToGateway appends a default route through the gateway to the
// VCN's default route table. The stack is not usable until this rule is in
// place and the table is back to available.
func (p *OCIProvisioner) addRouteRuleToGateway(ctx context.Context, gateway *core.InternetGateway, vcn *core.Vcn) error {
	resp, err := p.vnet.GetRouteTable(ctx, core.GetRouteTableRequest{
		RtId: vcn.DefaultRouteTableId,
	})
	if err != nil {
		return fmt.Errorf("failed to get route table: %w", err)
	}

	routeRules := append(resp.RouteTable.RouteRules, core.RouteRule{
		Destination:     common.String(anywhereCidr),
		DestinationType: core.RouteRuleDestinationTypeCidrBlock,
		NetworkEntityId: gateway.Id,
	})

	_, err = p.vnet.UpdateRouteTable(ctx, core.UpdateRouteTableRequest{
		RtId: vcn.DefaultRouteTableId,
		UpdateRouteTableDetails: core.UpdateRouteTableDetails{
			RouteRules: routeRules,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update route table: %w", err)
	}

	return p.waitRouteTableState(ctx, *vcn.DefaultRouteTableId, core.RouteTableLifecycleStateAvailable)
}

// teardownNetworkStack deletes the run's network resources in reverse
// creation order: route rules, gateway, subnet, VCN. The stack is located by
// matching the instance's former attachments against the <name>-subnet
// display name; when no attachment matches, the teardown is skipped and the
// resources are left behind.
func (p *OCIProvisioner) teardownNetworkStack(ctx context.Context, attachments []core.VnicAttachment, name string) error {
	var subnetID, vcnID string
	var gateway *core.InternetGateway

	for _, attachment := range attachments {
		if attachment.SubnetId == nil {
			continue
		}

		resp, err := p.vnet.GetSubnet(ctx, core.GetSubnetRequest{SubnetId: attachment.SubnetId})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return fmt.Errorf("failed to get subnet: %w", err)
		}

		subnet := resp.Subnet
		if subnet.DisplayName != nil && *subnet.DisplayName == name+"-subnet" {
			subnetID = *subnet.Id
			vcnID = *subnet.VcnId

			gateway, err = p.findGatewayByName(ctx, vcnID, name+"-gateway")
			if err != nil {
				return err
			}
			break
		}
	}

	if vcnID == "" {
		logging.Logger().Warn("No matching subnet found, skipping network teardown",
			zap.String("instance_name", name))
		return nil
	}

	vcnResp, err := p.vnet.GetVcn(ctx, core.GetVcnRequest{VcnId: common.String(vcnID)})
	if err != nil {
		return fmt.Errorf("failed to get VCN: %w", err)
	}

	if err := p.clearRouteRules(ctx, &vcnResp.Vcn); err != nil {
		return err
	}

	if gateway != nil {
		if err := p.deleteInternetGateway(ctx, *gateway.Id); err != nil {
			return err
		}
	}

	if err := p.deleteSubnet(ctx, subnetID); err != nil {
		return err
	}

	return p.deleteVcn(ctx, vcnID)
}

func (p *OCIProvisioner) findGatewayByName(ctx context.Context, vcnID, displayName string) (*core.InternetGateway, error) {
	var page *string

	for {
		resp, err := p.vnet.ListInternetGateways(ctx, core.ListInternetGatewaysRequest{
			CompartmentId: common.String(p.compartmentID),
			VcnId:         common.String(vcnID),
			Page:          page,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list internet gateways: %w", err)
		}

		for i := range resp.Items {
			gateway := resp.Items[i]
			if gateway.DisplayName != nil && *gateway.DisplayName == displayName {
				return &gateway, nil
			}
		}

		if resp.OpcNextPage == nil {
			return nil, nil
		}
		page = resp.OpcNextPage
	}
}

func (p *OCIProvisioner) clearRouteRules(ctx context.Context, vcn *core.Vcn) error {
	_, err := p.vnet.UpdateRouteTable(ctx, core.UpdateRouteTableRequest{
		RtId: vcn.DefaultRouteTableId,
		UpdateRouteTableDetails: core.UpdateRouteTableDetails{
			RouteRules: []core.RouteRule{},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to clear route rules: %w", err)
	}

	return p.waitRouteTableState(ctx, *vcn.DefaultRouteTableId, core.RouteTableLifecycleStateAvailable)
}

func (p *OCIProvisioner) deleteInternetGateway(ctx context.Context, gatewayID string) error {
	_, err := p.vnet.DeleteInternetGateway(ctx, core.DeleteInternetGatewayRequest{
		IgId: common.String(gatewayID),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete internet gateway: %w", err)
	}

	return p.waitGatewayState(ctx, gatewayID, core.InternetGatewayLifecycleStateTerminated, true)
}

func (p *OCIProvisioner) deleteSubnet(ctx context.Context, subnetID string) error {
	_, err := p.vnet.DeleteSubnet(ctx, core.DeleteSubnetRequest{
		SubnetId: common.String(subnetID),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete subnet: %w", err)
	}

	return p.waitSubnetState(ctx, subnetID, core.SubnetLifecycleStateTerminated, true)
}

func (p *OCIProvisioner) deleteVcn(ctx context.Context, vcnID string) error {
	_, err := p.vnet.DeleteVcn(ctx, core.DeleteVcnRequest{
		VcnId: common.String(vcnID),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete VCN: %w", err)
	}

	return p.waitVcnState(ctx, vcnID, core.VcnLifecycleStateTerminated, true)
}

func (p *OCIProvisioner) waitVcnState(ctx context.Context, vcnID string, expected core.VcnLifecycleStateEnum, missingOK bool) error {
	return p.waiter.WaitForState(ctx, string(expected), missingOK,
		func(ctx context.Context) (string, bool, error) {
			resp, err := p.vnet.GetVcn(ctx, core.GetVcnRequest{VcnId: common.String(vcnID)})
			if err != nil {
				if isNotFound(err) {
					return "", false, nil
				}
				return "", false, fmt.Errorf("failed to get VCN: %w", err)
			}
			return string(resp.Vcn.LifecycleState), true, nil
		})
}

func (p *OCIProvisioner) waitSubnetState(ctx context.Context, subnetID string, expected core.SubnetLifecycleStateEnum, missingOK bool) error {
	return p.waiter.WaitForState(ctx, string(expected), missingOK,
		func(ctx context.Context) (string, bool, error) {
			resp, err := p.vnet.GetSubnet(ctx, core.GetSubnetRequest{SubnetId: common.String(subnetID)})
			if err != nil {
				if isNotFound(err) {
					return "", false, nil
				}
				return "", false, fmt.Errorf("failed to get subnet: %w", err)
			}
			return string(resp.Subnet.LifecycleState), true, nil
		})
}

func (p *OCIProvisioner) waitGatewayState(ctx context.Context, gatewayID string, expected core.InternetGatewayLifecycleStateEnum, missingOK bool) error {
	return p.waiter.WaitForState(ctx, string(expected), missingOK,
		func(ctx context.Context) (string, bool, error) {
			resp, err := p.vnet.GetInternetGateway(ctx, core.GetInternetGatewayRequest{IgId: common.String(gatewayID)})
			if err != nil {
				if isNotFound(err) {
					return "", false, nil
				}
				return "", false, fmt.Errorf("failed to get internet gateway: %w", err)
			}
			return string(resp.InternetGateway.LifecycleState), true, nil
		})
}

func (p *OCIProvisioner) waitRouteTableState(ctx context.Context, routeTableID string, expected core.RouteTableLifecycleStateEnum) error {
	return p.waiter.WaitForState(ctx, string(expected), false,
		func(ctx context.Context) (string, bool, error) {
			resp, err := p.vnet.GetRouteTable(ctx, core.GetRouteTableRequest{RtId: common.String(routeTableID)})
			if err != nil {
				if isNotFound(err) {
					return "", false, nil
				}
				return "", false, fmt.Errorf("failed to get route table: %w", err)
			}
			return string(resp.RouteTable.LifecycleState), true, nil
		})
}
