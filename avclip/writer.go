// Package avclip writes segments of a video as separate re-encoded clips
// using libav.
package avclip

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avscene/internal"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/segmenter"
	"github.com/xaionaro-go/avscene/types"
	"github.com/xaionaro-go/avscene/videodecoder"
)

const (
	DefaultEncoderName = "mpeg4"
)

var defaultFrameRate = types.Rational{Num: 25, Den: 1}

type Config struct {
	// EncoderName is the encoder to use if the codec of the source video
	// could not be encoded.
	EncoderName string
}

func DefaultConfig() Config {
	return Config{
		EncoderName: DefaultEncoderName,
	}
}

// Writer is a segmenter.ClipWriter that decodes the source once and
// re-encodes the frames of every clip into its own file.
//
// Frames are counted in decoding (presentation) order, and timestamps
// start from zero in every clip.
type Writer struct {
	Config Config
}

var _ segmenter.ClipWriter = (*Writer)(nil)

func New(cfg Config) *Writer {
	return &Writer{
		Config: cfg,
	}
}

func (w *Writer) String() string {
	return fmt.Sprintf("avclip(fallback:%s)", w.Config.EncoderName)
}

func validateClips(clips []segmenter.Clip) error {
	prevEnd := 0
	for idx, clip := range clips {
		if clip.Start < prevEnd || clip.Start >= clip.End {
			return types.ErrInvalidInput{Reason: fmt.Sprintf("clip #%d (%s) is empty, overlaps or is out of order", idx, clip.Segment)}
		}
		if clip.Path == "" {
			return types.ErrInvalidInput{Reason: fmt.Sprintf("clip #%d has no path", idx)}
		}
		prevEnd = clip.End
	}
	return nil
}

func (w *Writer) WriteClips(
	ctx context.Context,
	sourcePath string,
	clips []segmenter.Clip,
) (_err error) {
	logger.Debugf(ctx, "WriteClips(ctx, '%s', %d clips)", sourcePath, len(clips))
	defer func() { logger.Debugf(ctx, "/WriteClips(ctx, '%s', %d clips): %v", sourcePath, len(clips), _err) }()

	if len(clips) == 0 {
		return nil
	}
	if err := validateClips(clips); err != nil {
		return err
	}

	dec, err := videodecoder.Open(ctx, sourcePath)
	if err != nil {
		return err
	}
	defer dec.Close()

	info := dec.StreamInfo()
	frameRate := info.FrameRate
	if frameRate.IsZero() {
		logger.Warnf(ctx, "the frame rate of '%s' is unknown, assuming %s", sourcePath, defaultFrameRate)
		frameRate = defaultFrameRate
	}
	codecs := []*astiav.Codec{
		astiav.FindEncoder(dec.Stream.CodecParameters().CodecID()),
		astiav.FindEncoderByName(w.Config.EncoderName),
	}

	var (
		cur        *clipEncoder
		clipIdx    int
		clipsDone  int
		framesSeen int
	)
	defer func() {
		if cur != nil {
			cur.Abort()
		}
	}()
	finish := func(ctx context.Context) error {
		if cur == nil {
			return nil
		}
		enc := cur
		cur = nil
		if err := enc.Finish(ctx); err != nil {
			return fmt.Errorf("unable to finalize clip '%s': %w", enc.Path, err)
		}
		if int(enc.framesWritten) != clips[clipIdx].Frames() {
			return types.ErrCorruptMedia{
				Path:     sourcePath,
				Reason:   fmt.Sprintf("clip '%s' got a wrong amount of frames", enc.Path),
				Expected: int64(clips[clipIdx].Frames()),
				Actual:   enc.framesWritten,
			}
		}
		clipsDone++
		return nil
	}

	err = dec.ForEachFrame(ctx, func(ctx context.Context, frameIdx int, f *astiav.Frame) error {
		framesSeen = frameIdx + 1
		for clipIdx < len(clips) && frameIdx >= clips[clipIdx].End {
			if err := finish(ctx); err != nil {
				return err
			}
			clipIdx++
		}
		if clipIdx >= len(clips) {
			return videodecoder.ErrStop
		}
		clip := clips[clipIdx]
		if frameIdx < clip.Start {
			return nil
		}
		if cur == nil {
			internal.Assert(ctx, frameIdx == clip.Start, frameIdx, clip.Segment)
			enc, err := openClipEncoder(ctx, clip.Path, codecs, frameRate, f)
			if err != nil {
				return fmt.Errorf("unable to open clip '%s': %w", clip.Path, err)
			}
			cur = enc
		}
		return cur.WriteFrame(ctx, f)
	})
	if err != nil {
		return err
	}

	if cur != nil {
		if err := finish(ctx); err != nil {
			return err
		}
	}
	if clipsDone != len(clips) {
		return types.ErrCorruptMedia{
			Path:     sourcePath,
			Reason:   "the video ended before the last clip",
			Expected: int64(clips[len(clips)-1].End),
			Actual:   int64(framesSeen),
		}
	}
	return nil
}
