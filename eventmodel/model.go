// Package eventmodel defines the contract of models predicting time
// intervals of events (for example falls) in a video.
package eventmodel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/types"
)

type Info struct {
	Name string `json:"name"`

	// Functional is false for placeholder models which return fixed
	// results regardless of the input.
	Functional bool `json:"functional"`
}

type Input struct {
	VideoPath string
	Frames    boundary.Frames
	FrameRate types.Rational
}

func (in Input) Validate() error {
	if in.VideoPath == "" && (in.Frames == nil || in.Frames.FrameCount() == 0) {
		return types.ErrInvalidInput{Reason: "neither a video path nor frames are provided"}
	}
	return nil
}

// Model predicts intervals of events. Load must succeed before Predict.
type Model interface {
	fmt.Stringer
	Info() Info
	Load(ctx context.Context, modelPath string) error
	Predict(ctx context.Context, in Input) (Intervals, error)
}

// Interval is the time range [Start, End) of a detected event.
type Interval struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

func (i Interval) String() string {
	return fmt.Sprintf("[%v, %v)", i.Start, i.End)
}

// FrameRange converts the interval into the frame range [start, end).
func (i Interval) FrameRange(frameRate types.Rational) (int, int) {
	return frameRate.DurationToFrame(i.Start), frameRate.DurationToFrame(i.End)
}

type Intervals []Interval

func (s Intervals) String() string {
	parts := make([]string, 0, len(s))
	for _, i := range s {
		parts = append(parts, i.String())
	}
	return strings.Join(parts, ", ")
}

// Validate checks that the intervals are non-empty, sorted and do not
// overlap.
func (s Intervals) Validate() error {
	for idx, i := range s {
		if i.Start < 0 || i.Start >= i.End {
			return types.ErrInvalidInput{Reason: fmt.Sprintf("interval #%d %s is empty or negative", idx, i)}
		}
		if idx > 0 && i.Start < s[idx-1].End {
			return types.ErrInvalidInput{Reason: fmt.Sprintf("interval #%d %s overlaps with or precedes %s", idx, i, s[idx-1])}
		}
	}
	return nil
}

type Name string

const (
	NameFallDetect = Name("fall-detect")
)

var factories = map[Name]func() Model{
	NameFallDetect: func() Model { return NewFallDetect() },
}

// Names lists the known models.
func Names() []Name {
	result := make([]Name, 0, len(factories))
	for name := range factories {
		result = append(result, name)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// New returns a not yet loaded model by its name.
func New(name Name) (Model, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, types.ErrModelLoad{Err: fmt.Errorf("unknown model '%s' (known: %v)", name, Names())}
	}
	return factory(), nil
}
