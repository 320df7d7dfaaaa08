package mediaconvert

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmc "github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/google/uuid"
	"github.com/vodpipeline/mediaconvert-trigger/internal/jobspec"
)

var ErrJobRejected = errors.New("mediaconvert rejected job")

// Job is the service's acknowledgement of an accepted job
type Job struct {
	ID     string `json:"id"`
	ARN    string `json:"arn,omitempty"`
	Status string `json:"status,omitempty"`
}

// Submitter issues CreateJob calls. One client is kept per endpoint and
// shared by concurrent submissions.
type Submitter struct {
	clients ClientFactory
	region  string

	mu        sync.Mutex
	endpoints map[Endpoint]API
}

func NewSubmitter(clients ClientFactory, region string) *Submitter {
	return &Submitter{
		clients:   clients,
		region:    region,
		endpoints: make(map[Endpoint]API),
	}
}

// Submit creates exactly one job and returns once the service acknowledges it.
// It does not wait for the job to run.
func (s *Submitter) Submit(ctx context.Context, endpoint Endpoint, spec jobspec.Spec, role string) (Job, error) {
	client, err := s.clientFor(ctx, endpoint)
	if err != nil {
		return Job{}, err
	}

	out, err := client.CreateJob(ctx, &awsmc.CreateJobInput{
		Role:               aws.String(role),
		Settings:           spec.Settings,
		ClientRequestToken: aws.String(uuid.NewString()),
		UserMetadata: map[string]string{
			"source_bucket": spec.Source.Bucket,
			"source_key":    spec.Source.Key,
		},
	})
	if err != nil {
		return Job{}, fmt.Errorf("failed to create job for %s: %w", spec.SourceURI, err)
	}

	if out.Job == nil || aws.ToString(out.Job.Id) == "" {
		return Job{}, fmt.Errorf("%w: no job id for %s", ErrJobRejected, spec.SourceURI)
	}

	return Job{
		ID:     aws.ToString(out.Job.Id),
		ARN:    aws.ToString(out.Job.Arn),
		Status: string(out.Job.Status),
	}, nil
}

func (s *Submitter) clientFor(ctx context.Context, endpoint Endpoint) (API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.endpoints[endpoint]; ok {
		return client, nil
	}

	client, err := s.clients(ctx, s.region, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create mediaconvert client for %s: %w", endpoint, err)
	}

	s.endpoints[endpoint] = client
	return client, nil
}
