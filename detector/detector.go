// Package detector provides the built-in scene boundary detectors.
//
// All of them follow the same scheme: every frame gets a discontinuity
// score relative to its predecessor; frame 0 always starts a scene; a later
// frame starts a scene if its score exceeds the detector's threshold and it
// is at least MinSceneLength frames away from the previous boundary.
package detector

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/xaionaro-go/avscene/boundary"
)

const (
	DefaultMinSceneLength = 2
)

// ITU-R BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// luma returns a grayscale copy of img (as RGBA with R == G == B).
func luma(img image.Image) *image.RGBA {
	return effect.GrayscaleWithWeights(img, lumaR, lumaG, lumaB)
}

// pickBoundaries converts per-frame scores into a signal. scores[0] is
// ignored: frame 0 is always a boundary.
func pickBoundaries(
	scores []float64,
	minSceneLength int,
	isCut func(frameIdx int, score float64) bool,
) boundary.Signal {
	signal := make(boundary.Signal, len(scores))
	if len(scores) == 0 {
		return signal
	}
	if minSceneLength < 1 {
		minSceneLength = 1
	}

	signal[0] = true
	lastBoundary := 0
	for idx := 1; idx < len(scores); idx++ {
		if idx-lastBoundary < minSceneLength {
			continue
		}
		if !isCut(idx, scores[idx]) {
			continue
		}
		signal[idx] = true
		lastBoundary = idx
	}
	return signal
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
