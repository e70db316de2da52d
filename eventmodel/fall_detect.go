// fall_detect.go implements the FallDetect placeholder model.

package eventmodel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/types"
	"go.uber.org/atomic"
)

// FallDetect is a placeholder for a fall detection model: it checks the
// model artifact exists, but Predict always returns the same intervals.
type FallDetect struct {
	modelPath atomic.String
}

var _ Model = (*FallDetect)(nil)

func NewFallDetect() *FallDetect {
	return &FallDetect{}
}

func (m *FallDetect) String() string {
	return fmt.Sprintf("FallDetect(non-functional, model:'%s')", m.modelPath.Load())
}

func (m *FallDetect) Info() Info {
	return Info{
		Name:       string(NameFallDetect),
		Functional: false,
	}
}

func (m *FallDetect) Load(
	ctx context.Context,
	modelPath string,
) (_err error) {
	logger.Debugf(ctx, "Load(ctx, '%s')", modelPath)
	defer func() { logger.Debugf(ctx, "/Load(ctx, '%s'): %v", modelPath, _err) }()

	if modelPath == "" {
		return types.ErrModelLoad{Err: fmt.Errorf("the model path is empty")}
	}
	info, err := os.Stat(modelPath)
	if err != nil {
		return types.ErrModelLoad{Path: modelPath, Err: err}
	}
	if info.IsDir() || info.Size() == 0 {
		return types.ErrModelLoad{Path: modelPath, Err: fmt.Errorf("not a model file")}
	}
	m.modelPath.Store(modelPath)
	return nil
}

// ErrPlaceholderPredictions describes what FallDetect.Predict returns
// instead of an actual inference result.
var ErrPlaceholderPredictions = types.ErrNotImplemented{
	Err: errors.New("fall detection inference; the intervals are placeholders"),
}

func (m *FallDetect) Predict(
	ctx context.Context,
	in Input,
) (_ret Intervals, _err error) {
	logger.Debugf(ctx, "Predict(ctx, '%s')", in.VideoPath)
	defer func() { logger.Debugf(ctx, "/Predict(ctx, '%s'): %v %v", in.VideoPath, _ret, _err) }()

	if m.modelPath.Load() == "" {
		return nil, types.ErrModelLoad{Err: fmt.Errorf("the model is not loaded")}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	metrics.PredictionsTotal.WithLabelValues(string(NameFallDetect)).Inc()
	logger.Warnf(ctx, "%s: %v", m, ErrPlaceholderPredictions)
	return Intervals{
		{Start: 93 * time.Second, End: 102 * time.Second},
		{Start: 134 * time.Second, End: 140 * time.Second},
	}, nil
}
