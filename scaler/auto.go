package scaler

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/types"
)

// Auto converts frames into a fixed destination format, (re)creating the
// underlying Software scaler whenever the source geometry or pixel format
// changes (which some streams do mid-way).
type Auto struct {
	// Destination with a zero Width means "same as the source";
	// with a zero Height means "keep the aspect ratio".
	Destination       types.Resolution
	DestinationPixFmt astiav.PixelFormat

	current *Software
}

func NewAuto(
	dst types.Resolution,
	dstPixFmt astiav.PixelFormat,
) *Auto {
	return &Auto{
		Destination:       dst,
		DestinationPixFmt: dstPixFmt,
	}
}

func (a *Auto) String() string {
	if a.current == nil {
		return fmt.Sprintf("AutoScaler(-> %s:%s)", a.Destination, a.DestinationPixFmt)
	}
	return fmt.Sprintf("AutoScaler(%s)", a.current)
}

// NeedsScaling returns false if src is already in the destination format.
func (a *Auto) NeedsScaling(src *astiav.Frame) bool {
	return src.PixelFormat() != a.DestinationPixFmt || a.destinationFor(src) != FrameResolution(src)
}

func (a *Auto) destinationFor(src *astiav.Frame) types.Resolution {
	srcRes := FrameResolution(src)
	switch {
	case a.Destination.Width == 0:
		return srcRes
	case a.Destination.Height == 0:
		return srcRes.ScaleToWidth(a.Destination.Width)
	default:
		return a.Destination
	}
}

func (a *Auto) ScaleFrame(
	ctx context.Context,
	src *astiav.Frame,
	dst *astiav.Frame,
) error {
	srcRes := FrameResolution(src)
	dstRes := a.destinationFor(src)
	if a.current == nil ||
		a.current.SourceResolution() != srcRes ||
		a.current.SourcePixelFormat() != src.PixelFormat() {
		if a.current != nil {
			logger.Debugf(ctx, "source format changed: %s:%s -> %s:%s", a.current.SourceResolution(), a.current.SourcePixelFormat(), srcRes, src.PixelFormat())
			a.current.Close(ctx)
		}
		s, err := NewSoftware(ctx, srcRes, src.PixelFormat(), dstRes, a.DestinationPixFmt, astiav.SoftwareScaleContextFlagBilinear)
		if err != nil {
			return err
		}
		a.current = s
	}
	return a.current.ScaleFrame(ctx, src, dst)
}

func (a *Auto) Close(ctx context.Context) error {
	if a.current == nil {
		return nil
	}
	return a.current.Close(ctx)
}
