package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

var (
	ErrDirectoryMarker = errors.New("source is a directory marker")
	ErrSourceMissing   = errors.New("source object does not exist")
	ErrSourceEmpty     = errors.New("source object is empty")
)

// Probe checks a source object before a job is requested for it
type Probe struct {
	client *minio.Client
}

type Info struct {
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
}

// NewProbe creates a probe against an S3-compatible endpoint.
// The region is fixed so no bucket-location lookup is made per object.
func NewProbe(cfg config.SourceStore, region string) (*Probe, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create source store client: %w", err)
	}

	return &Probe{client: client}, nil
}

// Check stats ref and rejects directory markers, missing objects and
// zero-byte uploads.
func (p *Probe) Check(ctx context.Context, ref transcode.ObjectRef) (Info, error) {
	if strings.HasSuffix(ref.Key, "/") {
		return Info{}, fmt.Errorf("%w: %s", ErrDirectoryMarker, ref)
	}

	info, err := p.client.StatObject(ctx, ref.Bucket, ref.Key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return Info{}, fmt.Errorf("%w: %s", ErrSourceMissing, ref)
		}
		return Info{}, fmt.Errorf("failed to stat source %s: %w", ref, err)
	}

	if info.Size == 0 {
		return Info{}, fmt.Errorf("%w: %s", ErrSourceEmpty, ref)
	}

	return Info{
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}
