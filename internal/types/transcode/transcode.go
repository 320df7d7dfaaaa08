package transcode

import (
	"fmt"
	"regexp"
	"strings"
)

// ObjectRef identifies a source media asset in a storage bucket
type ObjectRef struct {
	Bucket string `json:"bucket" validate:"required"`
	Key    string `json:"key" validate:"required"`
}

// URI returns the s3:// form of the reference
func (r ObjectRef) URI() string {
	return fmt.Sprintf("s3://%s/%s", r.Bucket, r.Key)
}

func (r ObjectRef) String() string {
	return r.Bucket + "/" + r.Key
}

// Rendition describes one output variant of a transcoding job
type Rendition struct {
	Preset       string `yaml:"preset" json:"preset" validate:"required"`
	Extension    string `yaml:"extension" json:"extension" validate:"required"`
	NameModifier string `yaml:"name_modifier" json:"name_modifier" validate:"required"`
	Container    string `yaml:"container" json:"container,omitempty" validate:"omitempty,oneof=M3U8 MP4 CMFC MOV MXF MPD F4V RAW WEBM OGG ISMV"`
}

// Ladder is the ordered list of renditions produced for every source object
type Ladder []Rendition

// DefaultLadder is used when no renditions are configured
func DefaultLadder() Ladder {
	return Ladder{
		{
			Preset:       "System-Avc_16x9_1080p_29_97fps_8500kbps",
			Extension:    "hls",
			NameModifier: "_HLS1080",
		},
	}
}

// SetValue parses the compact env form
// "preset:extension:modifier[:container],preset:extension:modifier".
func (l *Ladder) SetValue(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*l = nil
		return nil
	}

	var ladder Ladder
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 3 || len(parts) > 4 {
			return fmt.Errorf("invalid rendition %q: want preset:extension:modifier[:container]", entry)
		}

		r := Rendition{
			Preset:       parts[0],
			Extension:    parts[1],
			NameModifier: parts[2],
		}
		if len(parts) == 4 {
			r.Container = strings.ToUpper(parts[3])
		}
		ladder = append(ladder, r)
	}

	*l = ladder
	return nil
}

var regionPattern = regexp.MustCompile(`^[a-z]{2}(-gov|-iso[a-z]?)?-[a-z]+-[0-9]{1,2}$`)

// IsRegion reports whether s has the shape of an AWS region code
func IsRegion(s string) bool {
	return regionPattern.MatchString(s)
}
