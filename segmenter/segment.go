// Package segmenter turns boundary signals into half-open frame ranges
// and writes every range as a separate clip of the source video.
package segmenter

import (
	"fmt"
	"time"

	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/types"
)

// Segment is the half-open frame range [Start, End).
type Segment struct {
	Ordinal int `json:"ordinal"`
	Start   int `json:"start"`
	End     int `json:"end"`
}

func (s Segment) String() string {
	return fmt.Sprintf("#%d[%d, %d)", s.Ordinal, s.Start, s.End)
}

func (s Segment) Frames() int {
	return s.End - s.Start
}

// Time returns the [start, end) time range of the segment.
func (s Segment) Time(frameRate types.Rational) (time.Duration, time.Duration) {
	return frameRate.FrameToDuration(s.Start), frameRate.FrameToDuration(s.End)
}

// Policy defines what to do with the frames outside of the first and
// the last boundaries.
type Policy int

const (
	// PolicyDropOuter drops the frames before the first boundary and
	// starting from the last one.
	PolicyDropOuter = Policy(iota)

	// PolicyIncludeOuter additionally emits the leading and the trailing
	// (partial) segments, if they are not empty.
	PolicyIncludeOuter
)

func (p Policy) String() string {
	switch p {
	case PolicyDropOuter:
		return "drop_outer"
	case PolicyIncludeOuter:
		return "include_outer"
	default:
		return fmt.Sprintf("unknown_policy_%d", int(p))
	}
}

// Plan converts a boundary signal into consecutive segments: the k-th
// segment is [i_k, i_{k+1}) where i_k is the k-th boundary index.
func Plan(
	signal boundary.Signal,
	policy Policy,
) ([]Segment, error) {
	indices := signal.Indices()
	if len(indices) < 2 {
		return nil, types.ErrInsufficientBoundaries{Found: len(indices)}
	}

	var result []Segment
	add := func(start, end int) {
		if start >= end {
			return
		}
		result = append(result, Segment{
			Ordinal: len(result),
			Start:   start,
			End:     end,
		})
	}

	switch policy {
	case PolicyDropOuter:
	case PolicyIncludeOuter:
		add(0, indices[0])
	default:
		return nil, types.ErrInvalidInput{Reason: fmt.Sprintf("unknown segmentation policy %v", policy)}
	}
	for k := 0; k+1 < len(indices); k++ {
		add(indices[k], indices[k+1])
	}
	if policy == PolicyIncludeOuter {
		add(indices[len(indices)-1], len(signal))
	}
	return result, nil
}
