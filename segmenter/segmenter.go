package segmenter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/types"
)

const ClipNamePrefix = "crop_"

// Clip is a segment to be written into a separate file.
type Clip struct {
	Segment
	Path string
}

// ClipWriter writes every clip as a separate video file containing
// exactly the frames [Start, End) of the source video.
type ClipWriter interface {
	fmt.Stringer
	WriteClips(ctx context.Context, sourcePath string, clips []Clip) error
}

// ClipName returns the file name of the clip with the given ordinal.
func ClipName(ordinal int, ext string) string {
	return fmt.Sprintf("%s%d%s", ClipNamePrefix, ordinal, ext)
}

// Segmenter cuts a source video into clips by a boundary signal.
//
// It is not safe to run two segmentations into the same directory
// concurrently: clips with the same names are overwritten.
type Segmenter struct {
	Writer ClipWriter
	Policy Policy
}

func New(writer ClipWriter, policy Policy) *Segmenter {
	return &Segmenter{
		Writer: writer,
		Policy: policy,
	}
}

func (s *Segmenter) String() string {
	return fmt.Sprintf("Segmenter(%s, %s)", s.Writer, s.Policy)
}

// Plan returns the clips Segment would write, without writing anything.
func (s *Segmenter) Plan(
	sourcePath string,
	signal boundary.Signal,
	outputDir string,
) ([]Clip, error) {
	segments, err := Plan(signal, s.Policy)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(sourcePath)
	clips := make([]Clip, 0, len(segments))
	for _, seg := range segments {
		clips = append(clips, Clip{
			Segment: seg,
			Path:    filepath.Join(outputDir, ClipName(seg.Ordinal, ext)),
		})
	}
	return clips, nil
}

// Segment writes a clip "crop_<k><ext>" into outputDir for every segment
// and returns the paths of the clips in order.
func (s *Segmenter) Segment(
	ctx context.Context,
	sourcePath string,
	signal boundary.Signal,
	outputDir string,
) (_ret []string, _err error) {
	logger.Debugf(ctx, "Segment(ctx, '%s', %s, '%s')", sourcePath, signal, outputDir)
	defer func() {
		logger.Debugf(ctx, "/Segment(ctx, '%s', %s, '%s'): %v %v", sourcePath, signal, outputDir, _ret, _err)
	}()
	defer metrics.ObserveStage(metrics.StageSegment, time.Now())

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, types.ErrNotFound{Path: sourcePath, Err: err}
	}
	if info.IsDir() {
		return nil, types.ErrNotFound{Path: sourcePath, Err: fmt.Errorf("is a directory")}
	}

	clips, err := s.Plan(sourcePath, signal, outputDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create directory '%s': %w", outputDir, err)
	}

	if s.Writer == nil {
		return nil, fmt.Errorf("no clip writer is set")
	}
	if err := s.Writer.WriteClips(ctx, sourcePath, clips); err != nil {
		return nil, fmt.Errorf("unable to write the clips using %s: %w", s.Writer, err)
	}
	metrics.ClipsWrittenTotal.Add(float64(len(clips)))

	paths := make([]string, 0, len(clips))
	for _, clip := range clips {
		paths = append(paths, clip.Path)
	}
	return paths, nil
}
