package mediaconvert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmc "github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

var (
	ErrInvalidRegion       = errors.New("invalid region")
	ErrNoEndpoint          = errors.New("no mediaconvert endpoint returned")
	ErrEndpointUnavailable = errors.New("mediaconvert endpoint resolution failed")
)

// Resolver discovers the account-specific MediaConvert endpoint for a region
type Resolver struct {
	clients ClientFactory
	logger  *slog.Logger
}

func NewResolver(clients ClientFactory, logger *slog.Logger) *Resolver {
	return &Resolver{
		clients: clients,
		logger:  logger,
	}
}

// Resolve issues one DescribeEndpoints call and returns the first URL.
// It never retries and never caches.
func (r *Resolver) Resolve(ctx context.Context, region string) (Endpoint, error) {
	if !transcode.IsRegion(region) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}

	client, err := r.clients(ctx, region, "")
	if err != nil {
		r.logger.Error("Failed to create mediaconvert client",
			slog.String("region", region),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", ErrEndpointUnavailable, err)
	}

	out, err := client.DescribeEndpoints(ctx, &awsmc.DescribeEndpointsInput{})
	if err != nil {
		r.logger.Error("Failed to describe mediaconvert endpoints",
			slog.String("region", region),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", ErrEndpointUnavailable, err)
	}

	if len(out.Endpoints) == 0 || aws.ToString(out.Endpoints[0].Url) == "" {
		r.logger.Warn("No mediaconvert endpoint returned", slog.String("region", region))
		return "", ErrNoEndpoint
	}

	return Endpoint(aws.ToString(out.Endpoints[0].Url)), nil
}
