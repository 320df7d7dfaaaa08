package mediaconvert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmc "github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	mctypes "github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/vodpipeline/mediaconvert-trigger/internal/jobspec"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

type fakeAPI struct {
	mu sync.Mutex

	endpoints   []mctypes.Endpoint
	describeErr error
	describes   int

	createErr error
	jobID     string
	created   []*awsmc.CreateJobInput
}

func (f *fakeAPI) DescribeEndpoints(ctx context.Context, params *awsmc.DescribeEndpointsInput, optFns ...func(*awsmc.Options)) (*awsmc.DescribeEndpointsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describes++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &awsmc.DescribeEndpointsOutput{Endpoints: f.endpoints}, nil
}

func (f *fakeAPI) CreateJob(ctx context.Context, params *awsmc.CreateJobInput, optFns ...func(*awsmc.Options)) (*awsmc.CreateJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.jobID == "" {
		return &awsmc.CreateJobOutput{}, nil
	}
	return &awsmc.CreateJobOutput{Job: &mctypes.Job{
		Id:     aws.String(f.jobID),
		Status: mctypes.JobStatusSubmitted,
	}}, nil
}

type factoryCall struct {
	region   string
	endpoint Endpoint
}

func fakeFactory(api API) (ClientFactory, *[]factoryCall) {
	var (
		mu    sync.Mutex
		calls []factoryCall
	)
	return func(ctx context.Context, region string, endpoint Endpoint) (API, error) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, factoryCall{region: region, endpoint: endpoint})
		return api, nil
	}, &calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve(t *testing.T) {
	api := &fakeAPI{endpoints: []mctypes.Endpoint{
		{Url: aws.String("https://abc123.mediaconvert.us-east-1.amazonaws.com")},
		{Url: aws.String("https://second.example.com")},
	}}
	factory, calls := fakeFactory(api)

	endpoint, err := NewResolver(factory, discardLogger()).Resolve(context.Background(), "us-east-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if endpoint != "https://abc123.mediaconvert.us-east-1.amazonaws.com" {
		t.Errorf("Expected the first endpoint, got %s", endpoint)
	}
	if api.describes != 1 {
		t.Errorf("Expected one DescribeEndpoints call, got %d", api.describes)
	}
	if len(*calls) != 1 || (*calls)[0].region != "us-east-1" || (*calls)[0].endpoint != "" {
		t.Errorf("Expected a control-plane client for us-east-1, got %+v", *calls)
	}
}

func TestResolve_NoEndpoint(t *testing.T) {
	factory, _ := fakeFactory(&fakeAPI{})

	_, err := NewResolver(factory, discardLogger()).Resolve(context.Background(), "us-east-1")
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("Expected ErrNoEndpoint, got %v", err)
	}
}

func TestResolve_ServiceError(t *testing.T) {
	boom := errors.New("access denied")
	api := &fakeAPI{describeErr: boom}
	factory, _ := fakeFactory(api)

	_, err := NewResolver(factory, discardLogger()).Resolve(context.Background(), "us-east-1")
	if !errors.Is(err, ErrEndpointUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped service error, got %v", err)
	}
	if api.describes != 1 {
		t.Errorf("Expected no retry, got %d calls", api.describes)
	}
}

func TestResolve_InvalidRegion(t *testing.T) {
	api := &fakeAPI{}
	factory, calls := fakeFactory(api)

	_, err := NewResolver(factory, discardLogger()).Resolve(context.Background(), "nowhere")
	if !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("Expected ErrInvalidRegion, got %v", err)
	}
	if len(*calls) != 0 {
		t.Error("Expected no client for an invalid region")
	}
}

func buildSpec(t *testing.T, key string) jobspec.Spec {
	t.Helper()
	b, err := jobspec.NewBuilder("out", transcode.DefaultLadder())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return b.Build(transcode.ObjectRef{Bucket: "src", Key: key})
}

func TestSubmit(t *testing.T) {
	api := &fakeAPI{jobID: "1700000000000-abc123"}
	factory, calls := fakeFactory(api)
	s := NewSubmitter(factory, "us-east-1")
	endpoint := Endpoint("https://abc123.mediaconvert.us-east-1.amazonaws.com")

	spec := buildSpec(t, "clip.mp4")
	job, err := s.Submit(context.Background(), endpoint, spec, "arn:role:mc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if job.ID != "1700000000000-abc123" || job.Status != string(mctypes.JobStatusSubmitted) {
		t.Errorf("Unexpected job: %+v", job)
	}
	if len(api.created) != 1 {
		t.Fatalf("Expected one CreateJob call, got %d", len(api.created))
	}
	in := api.created[0]
	if aws.ToString(in.Role) != "arn:role:mc" {
		t.Errorf("Expected role arn:role:mc, got %s", aws.ToString(in.Role))
	}
	if in.Settings != spec.Settings {
		t.Error("Expected the spec's settings to be submitted")
	}
	if aws.ToString(in.ClientRequestToken) == "" {
		t.Error("Expected a client request token")
	}
	if in.UserMetadata["source_key"] != "clip.mp4" {
		t.Errorf("Unexpected user metadata: %v", in.UserMetadata)
	}
	if len(*calls) != 1 || (*calls)[0].endpoint != endpoint {
		t.Errorf("Expected a client bound to the endpoint, got %+v", *calls)
	}
}

func TestSubmit_ReusesClientPerEndpoint(t *testing.T) {
	api := &fakeAPI{jobID: "job"}
	factory, calls := fakeFactory(api)
	s := NewSubmitter(factory, "us-east-1")
	endpoint := Endpoint("https://abc123.mediaconvert.us-east-1.amazonaws.com")

	specs := []jobspec.Spec{buildSpec(t, "a.mp4"), buildSpec(t, "b.mp4"), buildSpec(t, "c.mp4")}

	var wg sync.WaitGroup
	for _, spec := range specs {
		spec := spec
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Submit(context.Background(), endpoint, spec, "arn:role:mc"); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(*calls) != 1 {
		t.Errorf("Expected one client for one endpoint, got %d", len(*calls))
	}
	if len(api.created) != 3 {
		t.Errorf("Expected 3 jobs, got %d", len(api.created))
	}
}

func TestSubmit_Errors(t *testing.T) {
	boom := errors.New("throttled")
	factory, _ := fakeFactory(&fakeAPI{createErr: boom})

	_, err := NewSubmitter(factory, "us-east-1").Submit(context.Background(), "https://e", buildSpec(t, "clip.mp4"), "arn:role:mc")
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped service error, got %v", err)
	}

	factory, _ = fakeFactory(&fakeAPI{})
	_, err = NewSubmitter(factory, "us-east-1").Submit(context.Background(), "https://e", buildSpec(t, "clip.mp4"), "arn:role:mc")
	if !errors.Is(err, ErrJobRejected) {
		t.Errorf("Expected ErrJobRejected, got %v", err)
	}
}
