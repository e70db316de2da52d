// luminance.go implements the luminance histogram detector.

package detector

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/montanaflynn/stats"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/types"
	"go.uber.org/atomic"
)

type LuminanceConfig struct {
	// Parameter1 is the number of standard deviations above the mean
	// histogram difference a frame must reach to be a cut.
	Parameter1     float64
	MinSceneLength int
}

func DefaultLuminanceConfig() LuminanceConfig {
	return LuminanceConfig{
		Parameter1:     1.0,
		MinSceneLength: DefaultMinSceneLength,
	}
}

// LuminanceDetector finds cuts by comparing the luminance histograms of
// consecutive frames against the statistics of the whole video.
type LuminanceDetector struct {
	Parameter1     atomic.Float64
	MinSceneLength int
}

var _ boundary.Detector = (*LuminanceDetector)(nil)

func NewLuminanceDetector(cfg LuminanceConfig) *LuminanceDetector {
	d := &LuminanceDetector{
		MinSceneLength: cfg.MinSceneLength,
	}
	d.Parameter1.Store(cfg.Parameter1)
	return d
}

func (d *LuminanceDetector) String() string {
	return fmt.Sprintf("LuminanceDetector(parameter1:%v)", d.Parameter1.Load())
}

func (d *LuminanceDetector) Name() boundary.DetectorName {
	return boundary.DetectorNameLuminance
}

func (d *LuminanceDetector) Detect(
	ctx context.Context,
	frames boundary.Frames,
) (_ret boundary.Signal, _err error) {
	logger.Debugf(ctx, "Detect")
	defer func() { logger.Debugf(ctx, "/Detect: %d boundaries, %v", _ret.Count(), _err) }()

	parameter1 := d.Parameter1.Load()
	if parameter1 < 0 {
		return nil, types.ErrInvalidInput{Reason: fmt.Sprintf("parameter1 must be non-negative, got %v", parameter1)}
	}
	if err := boundary.ValidateFrames(frames); err != nil {
		return nil, err
	}

	count := frames.FrameCount()
	scores := make([]float64, count)
	prev := lumaHistogram(frames.Frame(0))
	for idx := 1; idx < count; idx++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		cur := lumaHistogram(frames.Frame(idx))
		scores[idx] = histogramDistance(prev, cur)
		prev = cur
	}

	threshold := 0.0
	if count > 1 {
		diffs := stats.Float64Data(scores[1:])
		mean, err := diffs.Mean()
		if err != nil {
			return nil, fmt.Errorf("unable to calculate the mean: %w", err)
		}
		stdDev, err := diffs.StandardDeviationPopulation()
		if err != nil {
			return nil, fmt.Errorf("unable to calculate the standard deviation: %w", err)
		}
		threshold = mean + parameter1*stdDev
		logger.Debugf(ctx, "histogram differences: mean:%f stddev:%f threshold:%f", mean, stdDev, threshold)
	}

	return pickBoundaries(scores, d.MinSceneLength, func(frameIdx int, score float64) bool {
		logger.Tracef(ctx, "frame #%d: histogram difference:%f", frameIdx, score)
		return score > threshold
	}), nil
}

// lumaHistogram returns the normalized 256-bin luminance histogram.
func lumaHistogram(img image.Image) []float64 {
	h := histogram.NewRGBAHistogram(luma(img))
	bins := h.R.Bins
	var total float64
	for _, v := range bins {
		total += float64(v)
	}
	result := make([]float64, len(bins))
	if total == 0 {
		return result
	}
	for idx, v := range bins {
		result[idx] = float64(v) / total
	}
	return result
}

// histogramDistance is the L1 distance; it is within [0, 2] for
// normalized histograms.
func histogramDistance(a, b []float64) float64 {
	var sum float64
	for idx := range a {
		d := a[idx] - b[idx]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}
