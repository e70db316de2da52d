// Package aggregator runs the selected boundary detectors over a frame
// sequence and collects their signals into a boundary.Result.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/detector"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/types"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"
)

type Config struct {
	UseEdge      bool
	UseLuminance bool

	// Parameter1 is the sensitivity of the luminance detector.
	Parameter1 float64

	EdgeThreshold float64
	EdgeBaseline  detector.BaselineType
	EdgeBackend   detector.EdgeBackend

	// Concurrent runs every detector in its own goroutine.
	Concurrent bool

	// Extra are additional detectors to run; their names must not collide
	// with the built-in ones enabled above.
	Extra []boundary.Detector
}

func DefaultConfig() Config {
	edgeCfg := detector.DefaultEdgeConfig()
	return Config{
		UseEdge:       true,
		UseLuminance:  true,
		Parameter1:    detector.DefaultLuminanceConfig().Parameter1,
		EdgeThreshold: edgeCfg.Threshold,
		EdgeBaseline:  edgeCfg.Baseline,
		EdgeBackend:   detector.EdgeBackendBild,
	}
}

// Detectors builds the list of detectors enabled by the config.
func (cfg Config) Detectors() ([]boundary.Detector, error) {
	var detectors []boundary.Detector
	if cfg.UseEdge {
		edgeCfg := detector.DefaultEdgeConfig()
		edgeCfg.Threshold = cfg.EdgeThreshold
		if cfg.EdgeBaseline != "" {
			edgeCfg.Baseline = cfg.EdgeBaseline
		}
		d, err := detector.NewEdgeDetectorWithBackend(cfg.EdgeBackend, edgeCfg)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize the edge detector: %w", err)
		}
		detectors = append(detectors, d)
	}
	if cfg.UseLuminance {
		lumCfg := detector.DefaultLuminanceConfig()
		lumCfg.Parameter1 = cfg.Parameter1
		detectors = append(detectors, detector.NewLuminanceDetector(lumCfg))
	}
	detectors = append(detectors, cfg.Extra...)

	if len(detectors) == 0 {
		return nil, types.ErrInvalidInput{Reason: "no boundary detector is selected"}
	}
	seen := map[boundary.DetectorName]struct{}{}
	for _, d := range detectors {
		if d == nil {
			return nil, types.ErrInvalidInput{Reason: "a nil detector"}
		}
		if _, ok := seen[d.Name()]; ok {
			return nil, types.ErrInvalidInput{Reason: fmt.Sprintf("detector name '%s' is used twice", d.Name())}
		}
		seen[d.Name()] = struct{}{}
	}
	return detectors, nil
}

// Aggregate runs the detectors enabled by cfg and returns their signals
// keyed by detector name. Signals are never merged.
//
// If some detectors fail, the result still contains the signals of the
// others, and the returned error joins a types.ErrDetector per failure.
func Aggregate(
	ctx context.Context,
	frames boundary.Frames,
	sourcePath string,
	cfg Config,
) (_ret *boundary.Result, _err error) {
	logger.Debugf(ctx, "Aggregate(ctx, '%s', %#+v)", sourcePath, cfg)
	defer func() { logger.Debugf(ctx, "/Aggregate(ctx, '%s', %#+v): %v %v", sourcePath, cfg, _ret, _err) }()
	defer metrics.ObserveStage(metrics.StageDetect, time.Now())

	if err := boundary.ValidateFrames(frames); err != nil {
		return nil, err
	}

	detectors, err := cfg.Detectors()
	if err != nil {
		return nil, err
	}

	a := &aggregation{
		Result: boundary.NewResult(sourcePath),
	}
	if cfg.Concurrent {
		var wg sync.WaitGroup
		for _, d := range detectors {
			wg.Add(1)
			observability.Go(ctx, func(ctx context.Context) {
				defer wg.Done()
				a.run(ctx, d, frames)
			})
		}
		wg.Wait()
	} else {
		for _, d := range detectors {
			a.run(ctx, d, frames)
		}
	}

	return a.Result, errors.Join(a.Errors...)
}

type aggregation struct {
	Locker xsync.Mutex
	Result *boundary.Result
	Errors []error
}

func (a *aggregation) run(
	ctx context.Context,
	d boundary.Detector,
	frames boundary.Frames,
) {
	name := d.Name()
	ctx = belt.WithField(ctx, "detector", string(name))
	logger.Debugf(ctx, "running %s", d)

	signal, err := d.Detect(ctx, frames)
	if err == nil && len(signal) != frames.FrameCount() {
		err = fmt.Errorf("the signal length is %d, while there are %d frames", len(signal), frames.FrameCount())
	}

	a.Locker.Do(ctx, func() {
		if err != nil {
			logger.Errorf(ctx, "detector %s failed: %v", d, err)
			metrics.DetectorErrorsTotal.WithLabelValues(string(name)).Inc()
			a.Errors = append(a.Errors, types.ErrDetector{Name: string(name), Err: err})
			return
		}
		logger.Debugf(ctx, "detector %s found %d boundaries: %v", d, signal.Count(), signal.Indices())
		metrics.BoundariesDetectedTotal.WithLabelValues(string(name)).Add(float64(signal.Count()))
		a.Result.Signals[name] = signal
	})
}
