package provisioning

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// EC2Provisioner is a placeholder for the EC2 backend. Only client
// construction is implemented; the lifecycle operations are not.
//
// TODO: port the EC2 lifecycle (RunInstances/DescribeInstances polling) the
// same way the OCI backend is structured.
type EC2Provisioner struct {
	client *ec2.Client
}

// NewEC2Provisioner creates the EC2 client for the given region.
func NewEC2Provisioner(ctx context.Context, region, accessKey, secretKey string) (*EC2Provisioner, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &EC2Provisioner{client: ec2.NewFromConfig(cfg)}, nil
}

func (p *EC2Provisioner) Launch(ctx context.Context, spec InstanceSpec) (*InstanceInfo, error) {
	return nil, provisionErrorf("ec2: launch not implemented")
}

func (p *EC2Provisioner) Start(ctx context.Context) error {
	return provisionErrorf("ec2: start not implemented")
}

func (p *EC2Provisioner) Stop(ctx context.Context) error {
	return provisionErrorf("ec2: stop not implemented")
}

func (p *EC2Provisioner) Terminate(ctx context.Context) error {
	return provisionErrorf("ec2: terminate not implemented")
}

func (p *EC2Provisioner) Address(ctx context.Context) (string, error) {
	return "", provisionErrorf("ec2: address resolution not implemented")
}
