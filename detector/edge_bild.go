// edge_bild.go implements edge extraction on top of bild.

package detector

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

type bildEdgeExtractor struct {
	Level        uint8
	DilateRadius int
}

var _ edgeExtractor = (*bildEdgeExtractor)(nil)

func (e *bildEdgeExtractor) String() string {
	return fmt.Sprintf("bild(level:%d, dilate:%d)", e.Level, e.DilateRadius)
}

func (e *bildEdgeExtractor) Extract(
	ctx context.Context,
	img image.Image,
) (edgeFrame, error) {
	if img == nil {
		return nil, fmt.Errorf("nil frame")
	}
	edges := segment.Threshold(effect.EdgeDetection(luma(img), 1), e.Level)

	dilated := edges
	if e.DilateRadius > 0 {
		dilated = segment.Threshold(effect.Dilate(edges, float64(e.DilateRadius)), 128)
	}

	return &bildEdgeFrame{
		Edges:   edges,
		Dilated: dilated,
		Count:   countNonZero(edges),
	}, nil
}

type bildEdgeFrame struct {
	Edges   *image.Gray
	Dilated *image.Gray
	Count   int
}

func (f *bildEdgeFrame) EdgeCount() int {
	return f.Count
}

func (f *bildEdgeFrame) OverlapWithDilated(other edgeFrame) int {
	o := other.(*bildEdgeFrame)
	if len(f.Edges.Pix) != len(o.Dilated.Pix) {
		return 0
	}
	var count int
	for idx, v := range f.Edges.Pix {
		if v != 0 && o.Dilated.Pix[idx] != 0 {
			count++
		}
	}
	return count
}

func (f *bildEdgeFrame) Release() {}

func countNonZero(img *image.Gray) int {
	var count int
	for _, v := range img.Pix {
		if v != 0 {
			count++
		}
	}
	return count
}
