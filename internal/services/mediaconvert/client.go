package mediaconvert

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsmc "github.com/aws/aws-sdk-go-v2/service/mediaconvert"
)

// API is the part of the MediaConvert client the orchestrator uses
type API interface {
	DescribeEndpoints(ctx context.Context, params *awsmc.DescribeEndpointsInput, optFns ...func(*awsmc.Options)) (*awsmc.DescribeEndpointsOutput, error)
	CreateJob(ctx context.Context, params *awsmc.CreateJobInput, optFns ...func(*awsmc.Options)) (*awsmc.CreateJobOutput, error)
}

// ClientFactory returns a client for region. An empty endpoint targets the
// regional control plane; otherwise every call goes to endpoint.
type ClientFactory func(ctx context.Context, region string, endpoint Endpoint) (API, error)

// Endpoint is the URL of a regional job-submission front end
type Endpoint string

func (e Endpoint) String() string { return string(e) }

// NewClientFactory loads the default AWS credential chain once per region.
// Clients are built with a single attempt per call.
func NewClientFactory() ClientFactory {
	var (
		mu      sync.Mutex
		configs = make(map[string]aws.Config)
	)

	loadConfig := func(ctx context.Context, region string) (aws.Config, error) {
		mu.Lock()
		defer mu.Unlock()

		if cfg, ok := configs[region]; ok {
			return cfg, nil
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithRetryMaxAttempts(1),
		)
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
		}

		configs[region] = cfg
		return cfg, nil
	}

	return func(ctx context.Context, region string, endpoint Endpoint) (API, error) {
		cfg, err := loadConfig(ctx, region)
		if err != nil {
			return nil, err
		}

		return awsmc.NewFromConfig(cfg, func(o *awsmc.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint.String())
			}
		}), nil
	}
}
