// Package scaler converts decoded frames between resolutions and pixel
// formats (libswscale).
package scaler

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avscene/types"
)

type Scaler interface {
	fmt.Stringer
	Close(context.Context) error
	ScaleFrame(ctx context.Context, src *astiav.Frame, dst *astiav.Frame) error
	SourceResolution() types.Resolution
	SourcePixelFormat() astiav.PixelFormat
	DestinationResolution() types.Resolution
	DestinationPixelFormat() astiav.PixelFormat
}

// FrameResolution returns the resolution of a decoded frame.
func FrameResolution(f *astiav.Frame) types.Resolution {
	return types.Resolution{
		Width:  uint32(f.Width()),
		Height: uint32(f.Height()),
	}
}
