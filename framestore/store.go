// Package framestore holds the decoded frames of a single video together
// with the container's metadata about them.
package framestore

import (
	"fmt"
	"image"
	"time"

	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/types"
)

type Metadata struct {
	Path       string           `json:"path"`
	FrameRate  types.Rational   `json:"frame_rate"`
	FrameCount int              `json:"frame_count"`
	Resolution types.Resolution `json:"resolution"`
	Duration   time.Duration    `json:"duration"`
	CodecName  string           `json:"codec_name"`
}

func (m Metadata) String() string {
	return fmt.Sprintf("%s: %d frames @ %s fps, %s, %s, %v", m.Path, m.FrameCount, m.FrameRate, m.Resolution, m.CodecName, m.Duration)
}

// Store is an immutable ordered sequence of frames.
type Store struct {
	metadata Metadata
	frames   []image.Image
}

var _ boundary.Frames = (*Store)(nil)

// New builds a Store of already decoded frames. The frames are not copied
// and must not be modified afterwards. meta.FrameCount is overwritten with
// the actual amount of frames; a zero meta.Resolution is taken from the
// frames.
func New(
	meta Metadata,
	frames []image.Image,
) (*Store, error) {
	if len(frames) == 0 {
		return nil, types.ErrInvalidInput{Reason: "no frames"}
	}
	first := frames[0]
	if first == nil {
		return nil, types.ErrInvalidInput{Reason: "frame #0 is nil"}
	}
	size := first.Bounds().Size()
	colorModel := first.ColorModel()
	for idx, f := range frames {
		if f == nil {
			return nil, types.ErrInvalidInput{Reason: fmt.Sprintf("frame #%d is nil", idx)}
		}
		if f.Bounds().Size() != size {
			return nil, types.ErrInvalidInput{Reason: fmt.Sprintf("frame #%d has size %v, while frame #0 has %v", idx, f.Bounds().Size(), size)}
		}
		if f.ColorModel() != colorModel {
			return nil, types.ErrInvalidInput{Reason: fmt.Sprintf("frame #%d has a different color model than frame #0", idx)}
		}
	}
	if meta.Resolution == (types.Resolution{}) {
		meta.Resolution = types.Resolution{
			Width:  uint32(size.X),
			Height: uint32(size.Y),
		}
	}
	meta.FrameCount = len(frames)
	return &Store{
		metadata: meta,
		frames:   frames,
	}, nil
}

func (s *Store) String() string {
	return fmt.Sprintf("FrameStore(%s)", s.metadata)
}

func (s *Store) Metadata() Metadata {
	return s.metadata
}

func (s *Store) FrameCount() int {
	return len(s.frames)
}

// Frame returns the frame with the given index, or nil if it is out
// of range.
func (s *Store) Frame(idx int) image.Image {
	if idx < 0 || idx >= len(s.frames) {
		return nil
	}
	return s.frames[idx]
}

// Bounds returns the bounds shared by all the frames.
func (s *Store) Bounds() image.Rectangle {
	return s.frames[0].Bounds()
}

// Size returns an estimation of the memory consumed by the frames.
func (s *Store) Size() uint64 {
	var total uint64
	for _, f := range s.frames {
		total += imageSize(f)
	}
	return total
}

func imageSize(img image.Image) uint64 {
	switch img := img.(type) {
	case *image.RGBA:
		return uint64(len(img.Pix))
	case *image.NRGBA:
		return uint64(len(img.Pix))
	case *image.Gray:
		return uint64(len(img.Pix))
	case *image.YCbCr:
		return uint64(len(img.Y) + len(img.Cb) + len(img.Cr))
	default:
		size := img.Bounds().Size()
		return uint64(size.X) * uint64(size.Y) * 4
	}
}
