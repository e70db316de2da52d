package avconv

import (
	"github.com/asticode/go-astiav"
)

func FindStreamByIndex(
	fmtCtx *astiav.FormatContext,
	streamIndex int,
) *astiav.Stream {
	for _, stream := range fmtCtx.Streams() {
		if stream.Index() == streamIndex {
			return stream
		}
	}
	return nil
}

// FindVideoStream returns the first video stream of the format context, or
// nil if there is none.
func FindVideoStream(
	fmtCtx *astiav.FormatContext,
) *astiav.Stream {
	for _, stream := range fmtCtx.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			return stream
		}
	}
	return nil
}
