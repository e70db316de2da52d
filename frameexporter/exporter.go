// Package frameexporter writes video frames as individual image files
// named "frame<N>.<ext>".
package frameexporter

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avscene/avconv"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/pool"
	"github.com/xaionaro-go/avscene/scaler"
	"github.com/xaionaro-go/avscene/types"
	"github.com/xaionaro-go/avscene/videodecoder"
)

type Format string

const (
	FormatJPEG = Format("jpg")
	FormatPNG  = Format("png")
)

type Config struct {
	Format      Format
	JPEGQuality int
}

func DefaultConfig() Config {
	return Config{
		Format:      FormatJPEG,
		JPEGQuality: 90,
	}
}

func (cfg Config) encoder() (imgio.Encoder, Format, error) {
	switch cfg.Format {
	case FormatJPEG, "":
		quality := cfg.JPEGQuality
		if quality <= 0 {
			quality = DefaultConfig().JPEGQuality
		}
		return imgio.JPEGEncoder(quality), FormatJPEG, nil
	case FormatPNG:
		return imgio.PNGEncoder(), FormatPNG, nil
	default:
		return nil, "", types.ErrInvalidInput{Reason: fmt.Sprintf("unknown image format '%s'", cfg.Format)}
	}
}

// FrameName returns the file name of the frame with the given index.
func FrameName(frameIdx int, format Format) string {
	return fmt.Sprintf("frame%d.%s", frameIdx, format)
}

type exporter struct {
	Dir     string
	Encoder imgio.Encoder
	Format  Format
	Paths   []string
}

func newExporter(dir string, cfg Config) (*exporter, error) {
	enc, format, err := cfg.encoder()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create directory '%s': %w", dir, err)
	}
	return &exporter{
		Dir:     dir,
		Encoder: enc,
		Format:  format,
	}, nil
}

func (e *exporter) save(frameIdx int, img image.Image) error {
	path := filepath.Join(e.Dir, FrameName(frameIdx, e.Format))
	if err := imgio.Save(path, img, e.Encoder); err != nil {
		return fmt.Errorf("unable to save frame #%d into '%s': %w", frameIdx, path, err)
	}
	e.Paths = append(e.Paths, path)
	metrics.FramesExportedTotal.Inc()
	return nil
}

// Export writes every frame into dir and returns the paths in frame order.
func Export(
	ctx context.Context,
	frames boundary.Frames,
	dir string,
	cfg Config,
) (_ret []string, _err error) {
	logger.Debugf(ctx, "Export(ctx, frames, '%s', %#+v)", dir, cfg)
	defer func() {
		logger.Debugf(ctx, "/Export(ctx, frames, '%s', %#+v): %d files, %v", dir, cfg, len(_ret), _err)
	}()
	defer metrics.ObserveStage(metrics.StageExport, time.Now())

	if err := boundary.ValidateFrames(frames); err != nil {
		return nil, err
	}
	e, err := newExporter(dir, cfg)
	if err != nil {
		return nil, err
	}
	for idx := 0; idx < frames.FrameCount(); idx++ {
		select {
		case <-ctx.Done():
			return e.Paths, ctx.Err()
		default:
		}
		if err := e.save(idx, frames.Frame(idx)); err != nil {
			return e.Paths, err
		}
	}
	return e.Paths, nil
}

// ExportFile decodes the video and writes every frame into dir without
// keeping the frames in memory.
func ExportFile(
	ctx context.Context,
	videoPath string,
	dir string,
	cfg Config,
) (_ret []string, _err error) {
	logger.Debugf(ctx, "ExportFile(ctx, '%s', '%s', %#+v)", videoPath, dir, cfg)
	defer func() {
		logger.Debugf(ctx, "/ExportFile(ctx, '%s', '%s', %#+v): %d files, %v", videoPath, dir, cfg, len(_ret), _err)
	}()
	defer metrics.ObserveStage(metrics.StageExport, time.Now())

	dec, err := videodecoder.Open(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	e, err := newExporter(dir, cfg)
	if err != nil {
		return nil, err
	}

	s := scaler.NewAuto(types.Resolution{}, astiav.PixelFormatRgba)
	defer s.Close(ctx)
	scaled := pool.Frame.Get()
	defer pool.Frame.Put(scaled)

	err = dec.ForEachFrame(ctx, func(ctx context.Context, frameIdx int, f *astiav.Frame) error {
		defer scaled.Unref()
		if err := s.ScaleFrame(ctx, f, scaled); err != nil {
			return fmt.Errorf("unable to convert frame #%d: %w", frameIdx, err)
		}
		img, err := avconv.FrameToImage(scaled)
		if err != nil {
			return fmt.Errorf("unable to convert frame #%d into an image: %w", frameIdx, err)
		}
		return e.save(frameIdx, img)
	})
	return e.Paths, err
}
