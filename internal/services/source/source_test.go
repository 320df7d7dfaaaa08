package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

func newTestProbe(t *testing.T, sizes map[string]string) *Probe {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size, ok := sizes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", size)
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	probe, err := NewProbe(config.SourceStore{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKeyID:     "test",
		SecretAccessKey: "testsecret",
		UseSSL:          false,
	}, "us-east-1")
	if err != nil {
		t.Fatalf("Failed to create probe: %v", err)
	}
	return probe
}

func TestProbe_Check(t *testing.T) {
	probe := newTestProbe(t, map[string]string{
		"/src/clip.mp4":  "1048576",
		"/src/empty.mp4": "0",
	})
	ctx := context.Background()

	info, err := probe.Check(ctx, transcode.ObjectRef{Bucket: "src", Key: "clip.mp4"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.Size != 1048576 {
		t.Errorf("Expected size 1048576, got %d", info.Size)
	}
	if info.ContentType != "video/mp4" {
		t.Errorf("Expected content type video/mp4, got %q", info.ContentType)
	}

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"missing object", "gone.mp4", ErrSourceMissing},
		{"empty object", "empty.mp4", ErrSourceEmpty},
		{"directory marker", "uploads/", ErrDirectoryMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := probe.Check(ctx, transcode.ObjectRef{Bucket: "src", Key: tt.key})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
