package e2e_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"

	"github.com/jlausuch/img-proof/internal/provisioning"
)

// mockControlPlane is an in-memory OCI control plane for lifecycle tests.
// Every created resource is immediately available.
type mockControlPlane struct {
	instances   map[string]*core.Instance
	vcns        map[string]*core.Vcn
	subnets     map[string]*core.Subnet
	gateways    map[string]*core.InternetGateway
	routeTables map[string]*core.RouteTable
	vnics       map[string]*core.Vnic
	attachments []core.VnicAttachment
	counter     int
}

func newMockControlPlane() *mockControlPlane {
	return &mockControlPlane{
		instances:   make(map[string]*core.Instance),
		vcns:        make(map[string]*core.Vcn),
		subnets:     make(map[string]*core.Subnet),
		gateways:    make(map[string]*core.InternetGateway),
		routeTables: make(map[string]*core.RouteTable),
		vnics:       make(map[string]*core.Vnic),
	}
}

type mockNotFound struct{}

func (e *mockNotFound) Error() string           { return "resource not found" }
func (e *mockNotFound) GetHTTPStatusCode() int  { return 404 }
func (e *mockNotFound) GetMessage() string      { return "resource not found" }
func (e *mockNotFound) GetCode() string         { return "NotAuthorizedOrNotFound" }
func (e *mockNotFound) GetOpcRequestID() string { return "mock-request" }

func (m *mockControlPlane) nextID(kind string) string {
	m.counter++
	return fmt.Sprintf("ocid1.%s.oc1..mock%04d", kind, m.counter)
}

func (m *mockControlPlane) LaunchInstance(ctx context.Context, request core.LaunchInstanceRequest) (core.LaunchInstanceResponse, error) {
	details := request.LaunchInstanceDetails
	instance := &core.Instance{
		Id:             common.String(m.nextID("instance")),
		DisplayName:    details.DisplayName,
		CompartmentId:  details.CompartmentId,
		Shape:          details.Shape,
		Metadata:       details.Metadata,
		SourceDetails:  details.SourceDetails,
		LifecycleState: core.InstanceLifecycleStateRunning,
	}
	m.instances[*instance.Id] = instance

	vnic := &core.Vnic{
		Id:        common.String(m.nextID("vnic")),
		SubnetId:  details.CreateVnicDetails.SubnetId,
		PublicIp:  common.String("129.146.5.20"),
		PrivateIp: common.String("10.0.0.3"),
	}
	m.vnics[*vnic.Id] = vnic
	m.attachments = append(m.attachments, core.VnicAttachment{
		Id:         common.String(m.nextID("vnicattachment")),
		InstanceId: instance.Id,
		VnicId:     vnic.Id,
		SubnetId:   vnic.SubnetId,
	})

	return core.LaunchInstanceResponse{Instance: *instance}, nil
}

func (m *mockControlPlane) GetInstance(ctx context.Context, request core.GetInstanceRequest) (core.GetInstanceResponse, error) {
	instance, ok := m.instances[*request.InstanceId]
	if !ok {
		return core.GetInstanceResponse{}, &mockNotFound{}
	}
	return core.GetInstanceResponse{Instance: *instance}, nil
}

func (m *mockControlPlane) InstanceAction(ctx context.Context, request core.InstanceActionRequest) (core.InstanceActionResponse, error) {
	instance, ok := m.instances[*request.InstanceId]
	if !ok {
		return core.InstanceActionResponse{}, &mockNotFound{}
	}
	switch request.Action {
	case core.InstanceActionActionStart:
		instance.LifecycleState = core.InstanceLifecycleStateRunning
	case core.InstanceActionActionStop:
		instance.LifecycleState = core.InstanceLifecycleStateStopped
	}
	return core.InstanceActionResponse{Instance: *instance}, nil
}

func (m *mockControlPlane) TerminateInstance(ctx context.Context, request core.TerminateInstanceRequest) (core.TerminateInstanceResponse, error) {
	if _, ok := m.instances[*request.InstanceId]; !ok {
		return core.TerminateInstanceResponse{}, &mockNotFound{}
	}
	delete(m.instances, *request.InstanceId)
	return core.TerminateInstanceResponse{}, nil
}

func (m *mockControlPlane) ListVnicAttachments(ctx context.Context, request core.ListVnicAttachmentsRequest) (core.ListVnicAttachmentsResponse, error) {
	var items []core.VnicAttachment
	for _, attachment := range m.attachments {
		if *attachment.InstanceId == *request.InstanceId {
			items = append(items, attachment)
		}
	}
	return core.ListVnicAttachmentsResponse{Items: items}, nil
}

func (m *mockControlPlane) GetVnic(ctx context.Context, request core.GetVnicRequest) (core.GetVnicResponse, error) {
	vnic, ok := m.vnics[*request.VnicId]
	if !ok {
		return core.GetVnicResponse{}, &mockNotFound{}
	}
	return core.GetVnicResponse{Vnic: *vnic}, nil
}

func (m *mockControlPlane) CreateVcn(ctx context.Context, request core.CreateVcnRequest) (core.CreateVcnResponse, error) {
	routeTable := &core.RouteTable{
		Id:             common.String(m.nextID("routetable")),
		RouteRules:     []core.RouteRule{},
		LifecycleState: core.RouteTableLifecycleStateAvailable,
	}
	m.routeTables[*routeTable.Id] = routeTable

	vcn := &core.Vcn{
		Id:                  common.String(m.nextID("vcn")),
		CidrBlock:           request.CreateVcnDetails.CidrBlock,
		CompartmentId:       request.CreateVcnDetails.CompartmentId,
		DisplayName:         request.CreateVcnDetails.DisplayName,
		DefaultRouteTableId: routeTable.Id,
		LifecycleState:      core.VcnLifecycleStateAvailable,
	}
	m.vcns[*vcn.Id] = vcn
	return core.CreateVcnResponse{Vcn: *vcn}, nil
}

func (m *mockControlPlane) GetVcn(ctx context.Context, request core.GetVcnRequest) (core.GetVcnResponse, error) {
	vcn, ok := m.vcns[*request.VcnId]
	if !ok {
		return core.GetVcnResponse{}, &mockNotFound{}
	}
	return core.GetVcnResponse{Vcn: *vcn}, nil
}

func (m *mockControlPlane) DeleteVcn(ctx context.Context, request core.DeleteVcnRequest) (core.DeleteVcnResponse, error) {
	delete(m.vcns, *request.VcnId)
	return core.DeleteVcnResponse{}, nil
}

func (m *mockControlPlane) CreateSubnet(ctx context.Context, request core.CreateSubnetRequest) (core.CreateSubnetResponse, error) {
	subnet := &core.Subnet{
		Id:             common.String(m.nextID("subnet")),
		VcnId:          request.CreateSubnetDetails.VcnId,
		CidrBlock:      request.CreateSubnetDetails.CidrBlock,
		CompartmentId:  request.CreateSubnetDetails.CompartmentId,
		DisplayName:    request.CreateSubnetDetails.DisplayName,
		LifecycleState: core.SubnetLifecycleStateAvailable,
	}
	m.subnets[*subnet.Id] = subnet
	return core.CreateSubnetResponse{Subnet: *subnet}, nil
}

func (m *mockControlPlane) GetSubnet(ctx context.Context, request core.GetSubnetRequest) (core.GetSubnetResponse, error) {
	subnet, ok := m.subnets[*request.SubnetId]
	if !ok {
		return core.GetSubnetResponse{}, &mockNotFound{}
	}
	return core.GetSubnetResponse{Subnet: *subnet}, nil
}

func (m *mockControlPlane) DeleteSubnet(ctx context.Context, request core.DeleteSubnetRequest) (core.DeleteSubnetResponse, error) {
	delete(m.subnets, *request.SubnetId)
	return core.DeleteSubnetResponse{}, nil
}

func (m *mockControlPlane) CreateInternetGateway(ctx context.Context, request core.CreateInternetGatewayRequest) (core.CreateInternetGatewayResponse, error) {
	gateway := &core.InternetGateway{
		Id:             common.String(m.nextID("internetgateway")),
		VcnId:          request.CreateInternetGatewayDetails.VcnId,
		CompartmentId:  request.CreateInternetGatewayDetails.CompartmentId,
		DisplayName:    request.CreateInternetGatewayDetails.DisplayName,
		IsEnabled:      request.CreateInternetGatewayDetails.IsEnabled,
		LifecycleState: core.InternetGatewayLifecycleStateAvailable,
	}
	m.gateways[*gateway.Id] = gateway
	return core.CreateInternetGatewayResponse{InternetGateway: *gateway}, nil
}

func (m *mockControlPlane) GetInternetGateway(ctx context.Context, request core.GetInternetGatewayRequest) (core.GetInternetGatewayResponse, error) {
	gateway, ok := m.gateways[*request.IgId]
	if !ok {
		return core.GetInternetGatewayResponse{}, &mockNotFound{}
	}
	return core.GetInternetGatewayResponse{InternetGateway: *gateway}, nil
}

func (m *mockControlPlane) ListInternetGateways(ctx context.Context, request core.ListInternetGatewaysRequest) (core.ListInternetGatewaysResponse, error) {
	var items []core.InternetGateway
	for _, gateway := range m.gateways {
		if *gateway.VcnId == *request.VcnId {
			items = append(items, *gateway)
		}
	}
	return core.ListInternetGatewaysResponse{Items: items}, nil
}

func (m *mockControlPlane) DeleteInternetGateway(ctx context.Context, request core.DeleteInternetGatewayRequest) (core.DeleteInternetGatewayResponse, error) {
	delete(m.gateways, *request.IgId)
	return core.DeleteInternetGatewayResponse{}, nil
}

func (m *mockControlPlane) GetRouteTable(ctx context.Context, request core.GetRouteTableRequest) (core.GetRouteTableResponse, error) {
	routeTable, ok := m.routeTables[*request.RtId]
	if !ok {
		return core.GetRouteTableResponse{}, &mockNotFound{}
	}
	return core.GetRouteTableResponse{RouteTable: *routeTable}, nil
}

func (m *mockControlPlane) UpdateRouteTable(ctx context.Context, request core.UpdateRouteTableRequest) (core.UpdateRouteTableResponse, error) {
	routeTable, ok := m.routeTables[*request.RtId]
	if !ok {
		return core.UpdateRouteTableResponse{}, &mockNotFound{}
	}
	routeTable.RouteRules = request.UpdateRouteTableDetails.RouteRules
	return core.UpdateRouteTableResponse{RouteTable: *routeTable}, nil
}

var _ = Describe("Instance lifecycle", func() {
	var (
		cloud       *mockControlPlane
		provisioner *provisioning.OCIProvisioner
		ctx         context.Context
	)

	BeforeEach(func() {
		cloud = newMockControlPlane()
		ctx = context.Background()

		var err error
		provisioner, err = provisioning.NewOCIProvisionerWithClients(cloud, cloud, provisioning.OCIOptions{
			CompartmentID:      "ocid1.compartment.oc1..e2e",
			AvailabilityDomain: "Omic:PHX-AD-1",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("provisions, reaches and tears down an instance end-to-end", func() {
		info, err := provisioner.Launch(ctx, provisioning.InstanceSpec{
			ImageID:      "ocid1.image.oc1..e2eimage",
			Shape:        "VM.Standard2.1",
			SSHPublicKey: "ssh-rsa AAAAB3Nza e2e@host",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(info.State).To(Equal("RUNNING"))
		Expect(info.IP).To(Equal("129.146.5.20"))

		By("creating the full network stack")
		Expect(cloud.vcns).To(HaveLen(1))
		Expect(cloud.subnets).To(HaveLen(1))
		Expect(cloud.gateways).To(HaveLen(1))

		stack := provisioner.Network()
		Expect(stack).NotTo(BeNil())
		routeTable := cloud.routeTables[*cloud.vcns[stack.VcnID].DefaultRouteTableId]
		Expect(routeTable.RouteRules).To(HaveLen(1))
		Expect(*routeTable.RouteRules[0].NetworkEntityId).To(Equal(stack.GatewayID))

		By("stopping and restarting the instance")
		Expect(provisioner.Stop(ctx)).To(Succeed())
		state, err := provisioner.State(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(Equal("STOPPED"))

		Expect(provisioner.Start(ctx)).To(Succeed())
		state, err = provisioner.State(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(Equal("RUNNING"))

		By("resolving the public address")
		address, err := provisioner.Address(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(address).To(Equal("129.146.5.20"))

		By("terminating the instance and its network stack")
		Expect(provisioner.Terminate(ctx)).To(Succeed())
		Expect(cloud.instances).To(BeEmpty())
		Expect(cloud.vcns).To(BeEmpty())
		Expect(cloud.subnets).To(BeEmpty())
		Expect(cloud.gateways).To(BeEmpty())
	})

	It("adopts a running instance by ID", func() {
		info, err := provisioner.Launch(ctx, provisioning.InstanceSpec{
			ImageID: "ocid1.image.oc1..e2eimage",
		})
		Expect(err).NotTo(HaveOccurred())

		adopted, err := provisioning.NewOCIProvisionerWithClients(cloud, cloud, provisioning.OCIOptions{
			CompartmentID:      "ocid1.compartment.oc1..e2e",
			AvailabilityDomain: "Omic:PHX-AD-1",
			RunningInstanceID:  info.ID,
		})
		Expect(err).NotTo(HaveOccurred())

		state, err := adopted.State(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(Equal("RUNNING"))

		address, err := adopted.Address(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(address).To(Equal("129.146.5.20"))
	})
})
