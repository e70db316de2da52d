// open.go implements decoding a video file into a Store.

package framestore

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/dustin/go-humanize"
	"github.com/xaionaro-go/avscene/avconv"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/pool"
	"github.com/xaionaro-go/avscene/scaler"
	"github.com/xaionaro-go/avscene/types"
	"github.com/xaionaro-go/avscene/videodecoder"
)

type Config struct {
	// AnalysisWidth > 0 downscales the frames to this width (keeping the
	// aspect ratio); zero keeps the native size.
	AnalysisWidth uint32
}

func DefaultConfig() Config {
	return Config{}
}

// Probe returns what the container says about its first video stream
// without decoding it.
func Probe(
	ctx context.Context,
	path string,
) (_ret Metadata, _err error) {
	logger.Debugf(ctx, "Probe(ctx, '%s')", path)
	defer func() { logger.Debugf(ctx, "/Probe(ctx, '%s'): %v", path, _err) }()

	dec, err := videodecoder.Open(ctx, path)
	if err != nil {
		return Metadata{}, err
	}
	defer dec.Close()
	return metadataFromStreamInfo(path, dec.StreamInfo()), nil
}

func metadataFromStreamInfo(path string, info videodecoder.StreamInfo) Metadata {
	return Metadata{
		Path:       path,
		FrameRate:  info.FrameRate,
		FrameCount: int(info.NbFrames),
		Resolution: info.Resolution,
		Duration:   info.Duration,
		CodecName:  info.CodecName,
	}
}

// Open decodes every frame of the first video stream of the file into
// memory (as RGBA images).
func Open(
	ctx context.Context,
	path string,
	cfg Config,
) (_ret *Store, _err error) {
	logger.Debugf(ctx, "Open(ctx, '%s', %#+v)", path, cfg)
	defer func() { logger.Debugf(ctx, "/Open(ctx, '%s', %#+v): %v", path, cfg, _err) }()
	defer metrics.ObserveStage(metrics.StageDecode, time.Now())

	dec, err := videodecoder.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	info := dec.StreamInfo()
	meta := metadataFromStreamInfo(path, info)

	s := scaler.NewAuto(types.Resolution{Width: cfg.AnalysisWidth}, astiav.PixelFormatRgba)
	defer s.Close(ctx)

	scaled := pool.Frame.Get()
	defer pool.Frame.Put(scaled)

	var frames []image.Image
	if info.NbFrames > 0 {
		frames = make([]image.Image, 0, info.NbFrames)
	}
	err = dec.ForEachFrame(ctx, func(ctx context.Context, frameIdx int, f *astiav.Frame) error {
		defer scaled.Unref()
		if err := s.ScaleFrame(ctx, f, scaled); err != nil {
			return fmt.Errorf("unable to convert frame #%d: %w", frameIdx, err)
		}
		img, err := avconv.FrameToImage(scaled)
		if err != nil {
			return fmt.Errorf("unable to convert frame #%d into an image: %w", frameIdx, err)
		}
		frames = append(frames, img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.FramesDecodedTotal.Add(float64(len(frames)))

	if len(frames) == 0 {
		return nil, types.ErrCorruptMedia{Path: path, Reason: "no decodable video frames"}
	}
	if info.NbFrames == 0 {
		logger.Warnf(ctx, "the container of '%s' does not report the frame count; using the decoded count %d", path, len(frames))
	}
	if err := checkFrameCount(path, info.NbFrames, len(frames)); err != nil {
		return nil, err
	}

	store, err := New(meta, frames)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "decoded %d frames of '%s' (%s, analyzed at %v, %s in memory)", store.FrameCount(), path, store.Metadata().Resolution, store.Bounds().Size(), humanize.Bytes(store.Size()))
	return store, nil
}

// checkFrameCount compares the amount of decoded frames with the amount
// reported by the container. A reported count of zero means "unknown".
func checkFrameCount(
	path string,
	reported int64,
	decoded int,
) error {
	if reported == 0 || reported == int64(decoded) {
		return nil
	}
	return types.ErrCorruptMedia{
		Path:     path,
		Reason:   "the decoded frame count differs from the one reported by the container",
		Expected: reported,
		Actual:   int64(decoded),
	}
}
