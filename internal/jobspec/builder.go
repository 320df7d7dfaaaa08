// Package jobspec turns a source object into a MediaConvert job description.
// Everything except the source, the destination bucket and the rendition
// ladder is fixed policy.
package jobspec

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	mctypes "github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

const (
	AudioSelectorName = "Audio Selector 1"
	OutputGroupName   = "HLS Group"
	OutputPrefix      = "outputs/"

	SegmentLength    = 10
	MinSegmentLength = 5
)

var (
	ErrNoDestination = errors.New("destination bucket is required")
	ErrEmptyLadder   = errors.New("at least one rendition is required")
)

// Spec is a complete job request for one source object
type Spec struct {
	Source         transcode.ObjectRef
	SourceURI      string
	DestinationURI string
	Settings       *mctypes.JobSettings
}

type Builder struct {
	destinationURI string
	ladder         transcode.Ladder
}

// NewBuilder validates the static inputs once so Build cannot fail.
func NewBuilder(destinationBucket string, ladder transcode.Ladder) (*Builder, error) {
	if destinationBucket == "" {
		return nil, ErrNoDestination
	}
	if len(ladder) == 0 {
		return nil, ErrEmptyLadder
	}
	for i, r := range ladder {
		if r.Preset == "" || r.Extension == "" || r.NameModifier == "" {
			return nil, fmt.Errorf("rendition %d is incomplete: %+v", i, r)
		}
	}

	return &Builder{
		destinationURI: fmt.Sprintf("s3://%s/%s", destinationBucket, OutputPrefix),
		ladder:         append(transcode.Ladder(nil), ladder...),
	}, nil
}

// DestinationURI is shared by every job the builder produces
func (b *Builder) DestinationURI() string {
	return b.destinationURI
}

// Build returns a fresh spec on every call; nothing is shared between specs.
func (b *Builder) Build(ref transcode.ObjectRef) Spec {
	sourceURI := ref.URI()

	return Spec{
		Source:         ref,
		SourceURI:      sourceURI,
		DestinationURI: b.destinationURI,
		Settings: &mctypes.JobSettings{
			AdAvailOffset: aws.Int32(0),
			Inputs:        []mctypes.Input{buildInput(sourceURI)},
			OutputGroups:  []mctypes.OutputGroup{b.buildOutputGroup()},
		},
	}
}

func buildInput(sourceURI string) mctypes.Input {
	return mctypes.Input{
		FileInput: aws.String(sourceURI),
		AudioSelectors: map[string]mctypes.AudioSelector{
			AudioSelectorName: {
				Offset:           aws.Int32(0),
				DefaultSelection: mctypes.AudioDefaultSelectionDefault,
				ProgramSelection: aws.Int32(1),
			},
		},
		VideoSelector: &mctypes.VideoSelector{
			ColorSpace: mctypes.ColorSpaceFollow,
		},
		FilterEnable:   mctypes.InputFilterEnableAuto,
		PsiControl:     mctypes.InputPsiControlUsePsi,
		DeblockFilter:  mctypes.InputDeblockFilterDisabled,
		DenoiseFilter:  mctypes.InputDenoiseFilterDisabled,
		TimecodeSource: mctypes.InputTimecodeSourceEmbedded,
		FilterStrength: aws.Int32(0),
	}
}

func (b *Builder) buildOutputGroup() mctypes.OutputGroup {
	outputs := make([]mctypes.Output, 0, len(b.ladder))
	for _, r := range b.ladder {
		out := mctypes.Output{
			Preset:       aws.String(r.Preset),
			Extension:    aws.String(r.Extension),
			NameModifier: aws.String(r.NameModifier),
		}
		if r.Container != "" {
			out.ContainerSettings = &mctypes.ContainerSettings{
				Container: mctypes.ContainerType(r.Container),
			}
		}
		outputs = append(outputs, out)
	}

	return mctypes.OutputGroup{
		Name: aws.String(OutputGroupName),
		OutputGroupSettings: &mctypes.OutputGroupSettings{
			Type: mctypes.OutputGroupTypeHlsGroupSettings,
			HlsGroupSettings: &mctypes.HlsGroupSettings{
				Destination:      aws.String(b.destinationURI),
				SegmentLength:    aws.Int32(SegmentLength),
				MinSegmentLength: aws.Int32(MinSegmentLength),
			},
		},
		Outputs: outputs,
	}
}
