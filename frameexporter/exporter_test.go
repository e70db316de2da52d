package frameexporter

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avscene/avclip"
	"github.com/xaionaro-go/avscene/types"
)

type testFrames []image.Image

func (f testFrames) FrameCount() int           { return len(f) }
func (f testFrames) Frame(idx int) image.Image { return f[idx] }

func newFrames(n int) testFrames {
	frames := make(testFrames, n)
	for idx := range frames {
		img := image.NewRGBA(image.Rect(0, 0, 16, 8))
		for i := range img.Pix {
			img.Pix[i] = uint8(idx * 40)
		}
		frames[idx] = img
	}
	return frames
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("jpeg", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "frames")
		paths, err := Export(ctx, newFrames(3), dir, DefaultConfig())
		require.NoError(t, err)
		require.Equal(t, []string{
			filepath.Join(dir, "frame0.jpg"),
			filepath.Join(dir, "frame1.jpg"),
			filepath.Join(dir, "frame2.jpg"),
		}, paths)

		img, err := imgio.Open(paths[1])
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
	})

	t.Run("png", func(t *testing.T) {
		dir := t.TempDir()
		paths, err := Export(ctx, newFrames(2), dir, Config{Format: FormatPNG})
		require.NoError(t, err)
		require.Equal(t, filepath.Join(dir, "frame1.png"), paths[1])
	})

	t.Run("unknown_format", func(t *testing.T) {
		_, err := Export(ctx, newFrames(2), t.TempDir(), Config{Format: "bmp"})
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})

	t.Run("no_frames", func(t *testing.T) {
		_, err := Export(ctx, testFrames{}, t.TempDir(), DefaultConfig())
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})
}

func TestExportFile(t *testing.T) {
	ctx := context.Background()

	t.Run("not_found", func(t *testing.T) {
		_, err := ExportFile(ctx, filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir(), DefaultConfig())
		require.ErrorAs(t, err, &types.ErrNotFound{})
	})

	t.Run("video", func(t *testing.T) {
		frames := make(testFrames, 0, 6)
		for _, f := range newFrames(3) {
			big := image.NewRGBA(image.Rect(0, 0, 32, 16))
			copy(big.Pix, f.(*image.RGBA).Pix)
			frames = append(frames, big, big)
		}
		videoPath := filepath.Join(t.TempDir(), "video.mp4")
		require.NoError(t, avclip.New(avclip.DefaultConfig()).WriteImages(ctx, videoPath, frames, types.Rational{Num: 10, Den: 1}))

		dir := t.TempDir()
		paths, err := ExportFile(ctx, videoPath, dir, DefaultConfig())
		require.NoError(t, err)
		require.Len(t, paths, 6)
		require.Equal(t, filepath.Join(dir, "frame5.jpg"), paths[5])
	})
}
