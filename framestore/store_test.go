package framestore

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avscene/avclip"
	"github.com/xaionaro-go/avscene/types"
)

func newFrames(n int, w, h int) []image.Image {
	frames := make([]image.Image, n)
	for idx := range frames {
		frames[idx] = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return frames
}

func TestNew(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s, err := New(Metadata{Path: "x.mp4", FrameCount: 100}, newFrames(3, 4, 2))
		require.NoError(t, err)
		require.Equal(t, 3, s.FrameCount())
		require.Equal(t, 3, s.Metadata().FrameCount)
		require.Equal(t, types.Resolution{Width: 4, Height: 2}, s.Metadata().Resolution)
		require.Equal(t, image.Rect(0, 0, 4, 2), s.Bounds())
		require.NotNil(t, s.Frame(2))
		require.Nil(t, s.Frame(3))
		require.Nil(t, s.Frame(-1))
		require.Equal(t, uint64(3*4*2*4), s.Size())
	})

	t.Run("empty", func(t *testing.T) {
		_, err := New(Metadata{}, nil)
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})

	t.Run("nil_frame", func(t *testing.T) {
		frames := newFrames(3, 4, 2)
		frames[1] = nil
		_, err := New(Metadata{}, frames)
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})

	t.Run("size_mismatch", func(t *testing.T) {
		frames := newFrames(3, 4, 2)
		frames[2] = image.NewRGBA(image.Rect(0, 0, 2, 2))
		_, err := New(Metadata{}, frames)
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})

	t.Run("color_model_mismatch", func(t *testing.T) {
		frames := newFrames(2, 4, 2)
		frames[1] = image.NewGray(image.Rect(0, 0, 4, 2))
		_, err := New(Metadata{}, frames)
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})
}

func TestOpenNotFound(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nonexistent.mp4")

	_, err := Open(ctx, path, DefaultConfig())
	require.ErrorAs(t, err, &types.ErrNotFound{})

	_, err = Probe(ctx, path)
	require.ErrorAs(t, err, &types.ErrNotFound{})

	_, err = Open(ctx, t.TempDir(), DefaultConfig())
	require.ErrorAs(t, err, &types.ErrNotFound{})
}

func writeTestVideo(t *testing.T, framesPerScene int, levels ...uint8) string {
	var frames testFrames
	for _, level := range levels {
		img := image.NewRGBA(image.Rect(0, 0, 64, 48))
		for idx := 0; idx < len(img.Pix); idx += 4 {
			img.Pix[idx+0] = level
			img.Pix[idx+1] = level
			img.Pix[idx+2] = level
			img.Pix[idx+3] = 255
		}
		for i := 0; i < framesPerScene; i++ {
			frames = append(frames, img)
		}
	}
	path := filepath.Join(t.TempDir(), "video.mp4")
	err := avclip.New(avclip.DefaultConfig()).WriteImages(context.Background(), path, frames, types.Rational{Num: 25, Den: 1})
	require.NoError(t, err)
	return path
}

type testFrames []image.Image

func (f testFrames) FrameCount() int           { return len(f) }
func (f testFrames) Frame(idx int) image.Image { return f[idx] }

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := writeTestVideo(t, 10, 30, 220)

	meta, err := Probe(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 20, meta.FrameCount)
	require.Equal(t, types.Resolution{Width: 64, Height: 48}, meta.Resolution)

	s, err := Open(ctx, path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 20, s.FrameCount())
	require.Equal(t, 25.0, s.Metadata().FrameRate.Float64())
	require.Equal(t, image.Rect(0, 0, 64, 48), s.Bounds())

	s, err = Open(ctx, path, Config{AnalysisWidth: 32})
	require.NoError(t, err)
	require.Equal(t, 20, s.FrameCount())
	require.Equal(t, types.Resolution{Width: 64, Height: 48}, s.Metadata().Resolution)
	require.Equal(t, image.Rect(0, 0, 32, 24), s.Bounds())
}

func TestCheckFrameCount(t *testing.T) {
	t.Run("mismatch", func(t *testing.T) {
		err := checkFrameCount("a.mp4", 30, 28)
		var corrupt types.ErrCorruptMedia
		require.ErrorAs(t, err, &corrupt)
		require.Equal(t, "a.mp4", corrupt.Path)
		require.Equal(t, int64(30), corrupt.Expected)
		require.Equal(t, int64(28), corrupt.Actual)
	})
	t.Run("unknown", func(t *testing.T) {
		require.NoError(t, checkFrameCount("a.mp4", 0, 28))
	})
	t.Run("equal", func(t *testing.T) {
		require.NoError(t, checkFrameCount("a.mp4", 28, 28))
	})
}
