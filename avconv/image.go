package avconv

import (
	"fmt"
	"image"

	"github.com/asticode/go-astiav"
)

// FrameToImage copies the frame data into a newly allocated Go image.
func FrameToImage(f *astiav.Frame) (image.Image, error) {
	img, err := f.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("unable to guess the image format for %s: %w", f.PixelFormat(), err)
	}
	if err := f.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("unable to copy the frame data: %w", err)
	}
	return img, nil
}
