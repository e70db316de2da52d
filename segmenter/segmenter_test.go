package segmenter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/types"
)

func mustSignal(t *testing.T, values ...int) boundary.Signal {
	s, err := boundary.SignalFromInts(values)
	require.NoError(t, err)
	return s
}

func TestPlan(t *testing.T) {
	t.Run("drop_outer", func(t *testing.T) {
		segments, err := Plan(mustSignal(t, 0, 0, 1, 0, 0, 0, 1, 0, 0, 1, 0), PolicyDropOuter)
		require.NoError(t, err)
		require.Equal(t, []Segment{
			{Ordinal: 0, Start: 2, End: 6},
			{Ordinal: 1, Start: 6, End: 9},
		}, segments)
	})

	t.Run("include_outer", func(t *testing.T) {
		segments, err := Plan(mustSignal(t, 0, 0, 1, 0, 0, 0, 1, 0, 0, 1, 0), PolicyIncludeOuter)
		require.NoError(t, err)
		require.Equal(t, []Segment{
			{Ordinal: 0, Start: 0, End: 2},
			{Ordinal: 1, Start: 2, End: 6},
			{Ordinal: 2, Start: 6, End: 9},
			{Ordinal: 3, Start: 9, End: 11},
		}, segments)
	})

	t.Run("include_outer_nothing_outside", func(t *testing.T) {
		segments, err := Plan(mustSignal(t, 1, 0, 1), PolicyIncludeOuter)
		require.NoError(t, err)
		require.Equal(t, []Segment{
			{Ordinal: 0, Start: 0, End: 2},
			{Ordinal: 1, Start: 2, End: 3},
		}, segments)
	})

	t.Run("n_plus_one_boundaries", func(t *testing.T) {
		s, err := boundary.NewSignal(100, 0, 7, 8, 30, 99)
		require.NoError(t, err)
		segments, err := Plan(s, PolicyDropOuter)
		require.NoError(t, err)
		require.Len(t, segments, 4)
		for k := 0; k+1 < len(segments); k++ {
			require.Equal(t, segments[k].End, segments[k+1].Start)
			require.Less(t, segments[k].Start, segments[k].End)
			require.Equal(t, k, segments[k].Ordinal)
		}
	})

	t.Run("insufficient", func(t *testing.T) {
		for _, s := range []boundary.Signal{
			mustSignal(t),
			mustSignal(t, 0, 0, 0),
			mustSignal(t, 0, 1, 0),
		} {
			_, err := Plan(s, PolicyDropOuter)
			var errInsufficient types.ErrInsufficientBoundaries
			require.ErrorAs(t, err, &errInsufficient)
			require.Equal(t, s.Count(), errInsufficient.Found)
		}
	})

	t.Run("unknown_policy", func(t *testing.T) {
		_, err := Plan(mustSignal(t, 1, 1), Policy(100))
		require.ErrorAs(t, err, &types.ErrInvalidInput{})
	})
}

func TestSegmentTime(t *testing.T) {
	start, end := Segment{Start: 25, End: 50}.Time(types.Rational{Num: 25, Den: 1})
	require.Equal(t, time.Second, start)
	require.Equal(t, 2*time.Second, end)
	require.Equal(t, 25, Segment{Start: 25, End: 50}.Frames())
}

type fakeClipWriter struct {
	Calls [][]Clip
}

func (w *fakeClipWriter) String() string { return "fake" }
func (w *fakeClipWriter) WriteClips(ctx context.Context, sourcePath string, clips []Clip) error {
	w.Calls = append(w.Calls, clips)
	for _, clip := range clips {
		content := fmt.Sprintf("%s[%d:%d]", sourcePath, clip.Start, clip.End)
		if err := os.WriteFile(clip.Path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func listDir(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestSegmenter(t *testing.T) {
	ctx := context.Background()
	sourcePath := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(sourcePath, []byte("not really a video"), 0644))
	signal := mustSignal(t, 0, 0, 1, 0, 0, 0, 1, 0, 0, 1, 0)

	t.Run("writes_clips", func(t *testing.T) {
		w := &fakeClipWriter{}
		outDir := filepath.Join(t.TempDir(), "sub", "dir")
		paths, err := New(w, PolicyDropOuter).Segment(ctx, sourcePath, signal, outDir)
		require.NoError(t, err)
		require.Equal(t, []string{
			filepath.Join(outDir, "crop_0.mp4"),
			filepath.Join(outDir, "crop_1.mp4"),
		}, paths)
		require.Len(t, w.Calls, 1)
		require.Equal(t, 2, w.Calls[0][0].Start)
		require.Equal(t, 9, w.Calls[0][1].End)
		require.Equal(t, []string{"crop_0.mp4", "crop_1.mp4"}, listDir(t, outDir))
	})

	t.Run("idempotent_names", func(t *testing.T) {
		outDir := t.TempDir()
		s := New(&fakeClipWriter{}, PolicyDropOuter)
		_, err := s.Segment(ctx, sourcePath, signal, outDir)
		require.NoError(t, err)
		first := listDir(t, outDir)
		_, err = s.Segment(ctx, sourcePath, signal, outDir)
		require.NoError(t, err)
		require.Equal(t, first, listDir(t, outDir))
	})

	t.Run("source_not_found", func(t *testing.T) {
		w := &fakeClipWriter{}
		outDir := filepath.Join(t.TempDir(), "out")
		_, err := New(w, PolicyDropOuter).Segment(ctx, filepath.Join(t.TempDir(), "missing.mp4"), signal, outDir)
		require.ErrorAs(t, err, &types.ErrNotFound{})
		require.Empty(t, w.Calls)
		_, statErr := os.Stat(outDir)
		require.True(t, os.IsNotExist(statErr))
	})

	t.Run("insufficient_boundaries", func(t *testing.T) {
		w := &fakeClipWriter{}
		_, err := New(w, PolicyDropOuter).Segment(ctx, sourcePath, mustSignal(t, 1, 0, 0), t.TempDir())
		require.ErrorAs(t, err, &types.ErrInsufficientBoundaries{})
		require.Empty(t, w.Calls)
	})
}
