package detector

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/types"
)

const testFrameSize = 64

type testFrames []image.Image

func (f testFrames) FrameCount() int           { return len(f) }
func (f testFrames) Frame(idx int) image.Image { return f[idx] }

func stripes(vertical bool, shift int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, testFrameSize, testFrameSize))
	for y := 0; y < testFrameSize; y++ {
		for x := 0; x < testFrameSize; x++ {
			pos := x
			if !vertical {
				pos = y
			}
			c := color.RGBA{A: 255}
			if ((pos+testFrameSize-shift)/16)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func solid(level uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, testFrameSize, testFrameSize))
	for idx := 0; idx < len(img.Pix); idx += 4 {
		img.Pix[idx+0] = level
		img.Pix[idx+1] = level
		img.Pix[idx+2] = level
		img.Pix[idx+3] = 255
	}
	return img
}

func repeat(img image.Image, n int) testFrames {
	result := make(testFrames, n)
	for idx := range result {
		result[idx] = img
	}
	return result
}

func concat(parts ...testFrames) testFrames {
	var result testFrames
	for _, part := range parts {
		result = append(result, part...)
	}
	return result
}

func threeStripedScenes() testFrames {
	return concat(
		repeat(stripes(true, 0), 10),
		repeat(stripes(false, 0), 10),
		repeat(stripes(true, 8), 10),
	)
}

func threeSolidScenes() testFrames {
	return concat(
		repeat(solid(50), 10),
		repeat(solid(150), 10),
		repeat(solid(220), 10),
	)
}

func TestPickBoundaries(t *testing.T) {
	always := func(int, float64) bool { return true }
	t.Run("min_scene_length", func(t *testing.T) {
		s := pickBoundaries(make([]float64, 7), 2, always)
		require.Equal(t, []int{0, 2, 4, 6}, s.Indices())
	})
	t.Run("min_scene_length_1", func(t *testing.T) {
		s := pickBoundaries(make([]float64, 4), 1, always)
		require.Equal(t, []int{0, 1, 2, 3}, s.Indices())
	})
	t.Run("first_frame_always", func(t *testing.T) {
		s := pickBoundaries(make([]float64, 5), 2, func(int, float64) bool { return false })
		require.Equal(t, []int{0}, s.Indices())
	})
	t.Run("empty", func(t *testing.T) {
		require.Len(t, pickBoundaries(nil, 2, always), 0)
	})
}

func TestEdgeDetector(t *testing.T) {
	ctx := context.Background()

	t.Run("three_scenes", func(t *testing.T) {
		frames := threeStripedScenes()
		s, err := NewEdgeDetector(DefaultEdgeConfig()).Detect(ctx, frames)
		require.NoError(t, err)
		require.Len(t, s, frames.FrameCount())
		require.Equal(t, []int{0, 10, 20}, s.Indices())
	})

	t.Run("static", func(t *testing.T) {
		frames := repeat(stripes(true, 0), 5)
		s, err := NewEdgeDetector(DefaultEdgeConfig()).Detect(ctx, frames)
		require.NoError(t, err)
		require.Equal(t, []int{0}, s.Indices())
	})

	t.Run("single_frame", func(t *testing.T) {
		s, err := NewEdgeDetector(DefaultEdgeConfig()).Detect(ctx, repeat(solid(0), 1))
		require.NoError(t, err)
		require.Equal(t, boundary.Signal{true}, s)
	})

	t.Run("threshold_above_ecr", func(t *testing.T) {
		d := NewEdgeDetector(DefaultEdgeConfig())
		d.Threshold.Store(1)
		s, err := d.Detect(ctx, threeStripedScenes())
		require.NoError(t, err)
		require.Equal(t, []int{0}, s.Indices())
	})

	t.Run("threshold_is_owned_by_the_detector", func(t *testing.T) {
		cfg := DefaultEdgeConfig()
		cfg.Threshold = 0.7
		d := NewEdgeDetector(cfg)
		require.Equal(t, 0.7, d.Threshold.Load())
		require.Zero(t, d.Config.Threshold)
		require.Contains(t, d.String(), "threshold:0.7")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewEdgeDetector(DefaultEdgeConfig()).Detect(ctx, testFrames{})
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})

	t.Run("unknown_baseline", func(t *testing.T) {
		cfg := DefaultEdgeConfig()
		cfg.Baseline = "unknown"
		_, err := NewEdgeDetector(cfg).Detect(ctx, threeStripedScenes())
		require.Error(t, err)
	})

	t.Run("mama_baseline", func(t *testing.T) {
		cfg := DefaultEdgeConfig()
		cfg.Baseline = BaselineTypeMAMA
		s, err := NewEdgeDetector(cfg).Detect(ctx, threeStripedScenes())
		require.NoError(t, err)
		require.Equal(t, []int{0, 10, 20}, s.Indices())
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewEdgeDetector(DefaultEdgeConfig()).Detect(ctx, threeStripedScenes())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestEdgeChangeRatioEmptyMaps(t *testing.T) {
	empty := &bildEdgeFrame{Edges: image.NewGray(image.Rect(0, 0, 1, 1)), Dilated: image.NewGray(image.Rect(0, 0, 1, 1))}
	nonEmpty := &bildEdgeFrame{Edges: image.NewGray(image.Rect(0, 0, 1, 1)), Dilated: image.NewGray(image.Rect(0, 0, 1, 1)), Count: 1}
	nonEmpty.Edges.Pix[0] = 255
	nonEmpty.Dilated.Pix[0] = 255

	require.Equal(t, 0.0, edgeChangeRatio(empty, empty))
	require.Equal(t, 1.0, edgeChangeRatio(empty, nonEmpty))
	require.Equal(t, 1.0, edgeChangeRatio(nonEmpty, empty))
	require.Equal(t, 0.0, edgeChangeRatio(nonEmpty, nonEmpty))
}

func TestNewEdgeDetectorWithBackend(t *testing.T) {
	d, err := NewEdgeDetectorWithBackend("", DefaultEdgeConfig())
	require.NoError(t, err)
	require.Equal(t, boundary.DetectorNameEdge, d.Name())
	require.Contains(t, EdgeBackends(), EdgeBackendBild)

	_, err = NewEdgeDetectorWithBackend("nonexistent", DefaultEdgeConfig())
	require.ErrorAs(t, err, &types.ErrInvalidInput{})
}

func TestLuminanceDetector(t *testing.T) {
	ctx := context.Background()

	t.Run("three_scenes", func(t *testing.T) {
		frames := threeSolidScenes()
		s, err := NewLuminanceDetector(DefaultLuminanceConfig()).Detect(ctx, frames)
		require.NoError(t, err)
		require.Len(t, s, frames.FrameCount())
		require.Equal(t, []int{0, 10, 20}, s.Indices())
	})

	t.Run("large_parameter1", func(t *testing.T) {
		cfg := DefaultLuminanceConfig()
		cfg.Parameter1 = 10
		s, err := NewLuminanceDetector(cfg).Detect(ctx, threeSolidScenes())
		require.NoError(t, err)
		require.Equal(t, []int{0}, s.Indices())
	})

	t.Run("constant", func(t *testing.T) {
		s, err := NewLuminanceDetector(DefaultLuminanceConfig()).Detect(ctx, repeat(solid(100), 6))
		require.NoError(t, err)
		require.Equal(t, []int{0}, s.Indices())
	})

	t.Run("negative_parameter1", func(t *testing.T) {
		cfg := DefaultLuminanceConfig()
		cfg.Parameter1 = -1
		_, err := NewLuminanceDetector(cfg).Detect(ctx, threeSolidScenes())
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewLuminanceDetector(DefaultLuminanceConfig()).Detect(ctx, testFrames{})
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})

	t.Run("mismatched_sizes", func(t *testing.T) {
		frames := testFrames{solid(0), image.NewRGBA(image.Rect(0, 0, 2, 2))}
		_, err := NewLuminanceDetector(DefaultLuminanceConfig()).Detect(ctx, frames)
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})
}

func TestLumaHistogram(t *testing.T) {
	h := lumaHistogram(solid(100))
	require.Len(t, h, 256)
	var sum float64
	for _, v := range h {
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-9)
	require.InDelta(t, 2.0, histogramDistance(lumaHistogram(solid(10)), lumaHistogram(solid(200))), 1e-9)
}
