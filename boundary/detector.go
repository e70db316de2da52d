// Package boundary defines scene boundary signals, the capability every
// boundary detector implements and the result of a detection run.
package boundary

import (
	"context"
	"fmt"
	"image"

	"github.com/xaionaro-go/avscene/types"
)

// DetectorName identifies a detector and keys its signal in a Result.
type DetectorName string

const (
	DetectorNameEdge      = DetectorName("edge_algorithm")
	DetectorNameLuminance = DetectorName("luminance_algorithm")
)

// Frames is a read-only ordered sequence of decoded frames.
type Frames interface {
	FrameCount() int
	Frame(idx int) image.Image
}

// Detector computes a boundary Signal of length frames.FrameCount().
//
// Implementations must not modify the frames and must be safe to run
// concurrently with other detectors over the same Frames.
type Detector interface {
	fmt.Stringer
	Name() DetectorName
	Detect(ctx context.Context, frames Frames) (Signal, error)
}

// ValidateFrames returns types.ErrInvalidInput if frames is empty or
// malformed (a missing frame, or frames of different sizes).
func ValidateFrames(frames Frames) error {
	if frames == nil {
		return types.ErrInvalidInput{Reason: "no frames provided"}
	}
	count := frames.FrameCount()
	if count <= 0 {
		return types.ErrInvalidInput{Reason: "the frame sequence is empty"}
	}
	first := frames.Frame(0)
	if first == nil {
		return types.ErrInvalidInput{Reason: "frame #0 is nil"}
	}
	size := first.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return types.ErrInvalidInput{Reason: fmt.Sprintf("frame #0 has an empty size %v", size)}
	}
	for idx := 1; idx < count; idx++ {
		f := frames.Frame(idx)
		if f == nil {
			return types.ErrInvalidInput{Reason: fmt.Sprintf("frame #%d is nil", idx)}
		}
		if f.Bounds().Size() != size {
			return types.ErrInvalidInput{Reason: fmt.Sprintf("frame #%d has size %v, while frame #0 has %v", idx, f.Bounds().Size(), size)}
		}
	}
	return nil
}
