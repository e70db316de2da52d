package detector

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/indicator"
	"github.com/xaionaro-go/avscene/logger"
	"go.uber.org/atomic"
)

type EdgeBackend string

const (
	EdgeBackendBild   = EdgeBackend("bild")
	EdgeBackendOpenCV = EdgeBackend("opencv")
)

type BaselineType string

const (
	BaselineTypeNone = BaselineType("none")
	BaselineTypeSMA  = BaselineType("sma")
	BaselineTypeMAMA = BaselineType("mama")
)

type EdgeConfig struct {
	// Threshold is the minimal edge change ratio (0..1) of a cut.
	Threshold float64

	// EdgeLevel is the minimal edge filter response (0..255) for a pixel
	// to be considered an edge. Ignored by the OpenCV backend, which uses
	// Canny hysteresis instead.
	EdgeLevel uint8

	// DilateRadius is how far (in pixels) an edge may move between two
	// frames and still count as the same edge.
	DilateRadius int

	MinSceneLength int

	// AdaptiveFactor > 0 makes the threshold at least AdaptiveFactor times
	// the moving average (see Baseline) of the previous scores, so that
	// high-motion footage does not produce a cut on every frame.
	AdaptiveFactor float64
	Baseline       BaselineType
	BaselineWindow int
}

func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		Threshold:      0.5,
		EdgeLevel:      64,
		DilateRadius:   2,
		MinSceneLength: DefaultMinSceneLength,
		AdaptiveFactor: 3,
		Baseline:       BaselineTypeSMA,
		BaselineWindow: 25,
	}
}

func (cfg EdgeConfig) newBaseline() (indicator.MovingAverage[float64], error) {
	if cfg.AdaptiveFactor <= 0 {
		return nil, nil
	}
	window := cfg.BaselineWindow
	if window <= 0 {
		window = DefaultEdgeConfig().BaselineWindow
	}
	switch cfg.Baseline {
	case BaselineTypeNone:
		return nil, nil
	case BaselineTypeSMA, "":
		return indicator.NewSMA[float64](window), nil
	case BaselineTypeMAMA:
		return indicator.NewMAMADefault[float64](window), nil
	default:
		return nil, fmt.Errorf("unknown baseline type '%s'", cfg.Baseline)
	}
}

// edgeFrame is an edge map of a frame together with its dilated version.
type edgeFrame interface {
	EdgeCount() int

	// OverlapWithDilated returns how many edge pixels of this frame are
	// within the dilated edges of other.
	OverlapWithDilated(other edgeFrame) int

	Release()
}

type edgeExtractor interface {
	fmt.Stringer
	Extract(ctx context.Context, img image.Image) (edgeFrame, error)
}

// edgeChangeRatio is the ECR of Zabih, Miller and Mai: the larger fraction
// of the entering and the exiting edge pixels.
func edgeChangeRatio(prev, cur edgeFrame) float64 {
	nPrev, nCur := prev.EdgeCount(), cur.EdgeCount()
	switch {
	case nPrev == 0 && nCur == 0:
		return 0
	case nPrev == 0 || nCur == 0:
		return 1
	}
	pIn := 1 - float64(cur.OverlapWithDilated(prev))/float64(nCur)
	pOut := 1 - float64(prev.OverlapWithDilated(cur))/float64(nPrev)
	return math.Max(pIn, pOut)
}

// EdgeDetector finds cuts by comparing edge maps of consecutive frames.
type EdgeDetector struct {
	// Threshold is the cut threshold in use; it may be changed at any time.
	Threshold atomic.Float64

	// Config is the rest of the configuration. Its Threshold is moved into
	// the field above on construction and is zero afterwards.
	Config EdgeConfig

	extractor edgeExtractor
}

var _ boundary.Detector = (*EdgeDetector)(nil)

// NewEdgeDetector returns an edge detector that extracts edges with bild.
func NewEdgeDetector(cfg EdgeConfig) *EdgeDetector {
	return newEdgeDetector(cfg, &bildEdgeExtractor{
		Level:        cfg.EdgeLevel,
		DilateRadius: cfg.DilateRadius,
	})
}

func newEdgeDetector(cfg EdgeConfig, extractor edgeExtractor) *EdgeDetector {
	d := &EdgeDetector{
		Config:    cfg,
		extractor: extractor,
	}
	d.Threshold.Store(cfg.Threshold)
	d.Config.Threshold = 0
	return d
}

func (d *EdgeDetector) String() string {
	return fmt.Sprintf("EdgeDetector(%s, threshold:%v)", d.extractor, d.Threshold.Load())
}

func (d *EdgeDetector) Name() boundary.DetectorName {
	return boundary.DetectorNameEdge
}

func (d *EdgeDetector) Detect(
	ctx context.Context,
	frames boundary.Frames,
) (_ret boundary.Signal, _err error) {
	logger.Debugf(ctx, "Detect")
	defer func() { logger.Debugf(ctx, "/Detect: %d boundaries, %v", _ret.Count(), _err) }()

	if err := boundary.ValidateFrames(frames); err != nil {
		return nil, err
	}

	scores, err := d.scores(ctx, frames)
	if err != nil {
		return nil, err
	}

	thresholds, err := d.thresholds(scores)
	if err != nil {
		return nil, err
	}
	return pickBoundaries(scores, d.Config.MinSceneLength, func(frameIdx int, score float64) bool {
		logger.Tracef(ctx, "frame #%d: ECR:%f threshold:%f", frameIdx, score, thresholds[frameIdx])
		return score > thresholds[frameIdx]
	}), nil
}

// thresholds returns the effective threshold of each frame.
func (d *EdgeDetector) thresholds(scores []float64) ([]float64, error) {
	threshold := d.Threshold.Load()
	result := make([]float64, len(scores))
	baseline, err := d.Config.newBaseline()
	if err != nil {
		return nil, err
	}
	var average float64
	for idx := range scores {
		result[idx] = threshold
		if baseline == nil || idx == 0 {
			continue
		}
		result[idx] = math.Max(threshold, d.Config.AdaptiveFactor*average)
		average = baseline.Update(scores[idx])
	}
	return result, nil
}

func (d *EdgeDetector) scores(
	ctx context.Context,
	frames boundary.Frames,
) ([]float64, error) {
	count := frames.FrameCount()
	scores := make([]float64, count)

	prev, err := d.extractor.Extract(ctx, frames.Frame(0))
	if err != nil {
		return nil, fmt.Errorf("unable to extract edges of frame #0: %w", err)
	}
	defer func() { prev.Release() }()

	for idx := 1; idx < count; idx++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		cur, err := d.extractor.Extract(ctx, frames.Frame(idx))
		if err != nil {
			return nil, fmt.Errorf("unable to extract edges of frame #%d: %w", idx, err)
		}
		scores[idx] = edgeChangeRatio(prev, cur)
		prev.Release()
		prev = cur
	}
	return scores, nil
}
