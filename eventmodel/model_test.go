package eventmodel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avscene/types"
)

func TestFallDetect(t *testing.T) {
	ctx := context.Background()
	modelPath := filepath.Join(t.TempDir(), "fall.pth")
	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0644))

	m, err := New(NameFallDetect)
	require.NoError(t, err)
	require.False(t, m.Info().Functional)
	require.Contains(t, m.String(), "non-functional")
	require.ErrorAs(t, ErrPlaceholderPredictions, &types.ErrNotImplemented{})

	_, err = m.Predict(ctx, Input{VideoPath: "video.mp4"})
	require.ErrorAs(t, err, &types.ErrModelLoad{}, "predict before load")

	require.ErrorAs(t, m.Load(ctx, ""), &types.ErrModelLoad{})
	require.ErrorAs(t, m.Load(ctx, filepath.Join(t.TempDir(), "missing.pth")), &types.ErrModelLoad{})
	require.ErrorAs(t, m.Load(ctx, t.TempDir()), &types.ErrModelLoad{})
	require.NoError(t, m.Load(ctx, modelPath))

	_, err = m.Predict(ctx, Input{})
	require.ErrorAs(t, err, &types.ErrInvalidInput{})

	intervals, err := m.Predict(ctx, Input{VideoPath: "video.mp4"})
	require.NoError(t, err)
	require.NoError(t, intervals.Validate())
	require.Equal(t, Intervals{
		{Start: 93 * time.Second, End: 102 * time.Second},
		{Start: 134 * time.Second, End: 140 * time.Second},
	}, intervals)
}

func TestNewUnknown(t *testing.T) {
	_, err := New("unknown")
	require.ErrorAs(t, err, &types.ErrModelLoad{})
	require.Equal(t, []Name{NameFallDetect}, Names())
}

func TestIntervals(t *testing.T) {
	require.NoError(t, Intervals{}.Validate())
	require.Error(t, Intervals{{Start: 2 * time.Second, End: time.Second}}.Validate())
	require.Error(t, Intervals{
		{Start: 0, End: 5 * time.Second},
		{Start: 4 * time.Second, End: 6 * time.Second},
	}.Validate())

	start, end := Interval{Start: 2 * time.Second, End: 3 * time.Second}.FrameRange(types.Rational{Num: 30, Den: 1})
	require.Equal(t, 60, start)
	require.Equal(t, 90, end)
}
