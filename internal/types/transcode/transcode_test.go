package transcode

import "testing"

func TestLadder_SetValue(t *testing.T) {
	var l Ladder
	err := l.SetValue("System-Avc_16x9_1080p_29_97fps_8500kbps:hls:_HLS1080, System-Avc_16x9_720p_29_97fps_3500kbps:mp4:_720:mp4")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(l) != 2 {
		t.Fatalf("Expected 2 renditions, got %d", len(l))
	}
	if l[0].NameModifier != "_HLS1080" || l[0].Container != "" {
		t.Errorf("Unexpected first rendition: %+v", l[0])
	}
	if l[1].Extension != "mp4" || l[1].Container != "MP4" {
		t.Errorf("Unexpected second rendition: %+v", l[1])
	}
}

func TestLadder_SetValueRejectsMalformed(t *testing.T) {
	for _, s := range []string{"preset", "preset:ext", "a:b:c:d:e"} {
		var l Ladder
		if err := l.SetValue(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}

func TestObjectRef_URI(t *testing.T) {
	ref := ObjectRef{Bucket: "src", Key: "uploads/clip one.mp4"}
	if got := ref.URI(); got != "s3://src/uploads/clip one.mp4" {
		t.Errorf("Unexpected URI: %s", got)
	}
}

func TestIsRegion(t *testing.T) {
	valid := []string{"us-east-1", "eu-west-3", "ap-southeast-2", "us-gov-west-1", "cn-north-1"}
	for _, r := range valid {
		if !IsRegion(r) {
			t.Errorf("Expected %q to be a region", r)
		}
	}

	invalid := []string{"", "us-east", "US-EAST-1", "useast1", "us-east-1a", "https://example.com"}
	for _, r := range invalid {
		if IsRegion(r) {
			t.Errorf("Expected %q to be rejected", r)
		}
	}
}
