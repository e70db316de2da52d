// images.go implements writing in-memory images as a video.

package avclip

import (
	"context"
	"fmt"

	"github.com/anthonynsimon/bild/clone"
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/pool"
	"github.com/xaionaro-go/avscene/types"
)

// WriteImages encodes the frames as a video file at path, using the
// configured encoder.
func (w *Writer) WriteImages(
	ctx context.Context,
	path string,
	frames boundary.Frames,
	frameRate types.Rational,
) (_err error) {
	logger.Debugf(ctx, "WriteImages(ctx, '%s', %s)", path, frameRate)
	defer func() { logger.Debugf(ctx, "/WriteImages(ctx, '%s', %s): %v", path, frameRate, _err) }()

	if err := boundary.ValidateFrames(frames); err != nil {
		return err
	}
	if frameRate.IsZero() {
		frameRate = defaultFrameRate
	}

	f := pool.Frame.Get()
	defer pool.Frame.Put(f)

	var enc *clipEncoder
	defer func() {
		if enc != nil {
			enc.Abort()
		}
	}()
	for idx := 0; idx < frames.FrameCount(); idx++ {
		img := clone.AsRGBA(frames.Frame(idx))
		size := img.Bounds().Size()
		f.SetWidth(size.X)
		f.SetHeight(size.Y)
		f.SetPixelFormat(astiav.PixelFormatRgba)
		if err := f.AllocBuffer(0); err != nil {
			return fmt.Errorf("unable to allocate a frame buffer: %w", err)
		}
		if err := f.Data().FromImage(img); err != nil {
			f.Unref()
			return fmt.Errorf("unable to copy image #%d into a frame: %w", idx, err)
		}

		if enc == nil {
			var err error
			enc, err = openClipEncoder(ctx, path, []*astiav.Codec{astiav.FindEncoderByName(w.Config.EncoderName)}, frameRate, f)
			if err != nil {
				f.Unref()
				return fmt.Errorf("unable to open '%s': %w", path, err)
			}
		}
		err := enc.WriteFrame(ctx, f)
		f.Unref()
		if err != nil {
			return fmt.Errorf("unable to write frame #%d: %w", idx, err)
		}
	}

	e := enc
	enc = nil
	return e.Finish(ctx)
}
