//go:build with_cv
// +build with_cv

package detector

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func init() {
	edgeBackends[EdgeBackendOpenCV] = NewEdgeDetectorCV
}

// NewEdgeDetectorCV returns an edge detector that extracts edges with
// OpenCV (Canny plus elliptic dilation).
func NewEdgeDetectorCV(cfg EdgeConfig) *EdgeDetector {
	return newEdgeDetector(cfg, &cvEdgeExtractor{
		CannyLow:     100,
		CannyHigh:    200,
		DilateRadius: cfg.DilateRadius,
	})
}

type cvEdgeExtractor struct {
	CannyLow     float32
	CannyHigh    float32
	DilateRadius int
}

var _ edgeExtractor = (*cvEdgeExtractor)(nil)

func (e *cvEdgeExtractor) String() string {
	return fmt.Sprintf("opencv(canny:%v-%v, dilate:%d)", e.CannyLow, e.CannyHigh, e.DilateRadius)
}

func (e *cvEdgeExtractor) Extract(
	ctx context.Context,
	img image.Image,
) (edgeFrame, error) {
	if img == nil {
		return nil, fmt.Errorf("nil frame")
	}
	src, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("unable to convert the image to a Mat: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)

	edges := gocv.NewMat()
	gocv.Canny(gray, &edges, e.CannyLow, e.CannyHigh)

	dilated := gocv.NewMat()
	if e.DilateRadius > 0 {
		size := 2*e.DilateRadius + 1
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(size, size))
		gocv.Dilate(edges, &dilated, kernel)
		kernel.Close()
	} else {
		edges.CopyTo(&dilated)
	}

	return &cvEdgeFrame{
		Edges:   edges,
		Dilated: dilated,
		Count:   gocv.CountNonZero(edges),
	}, nil
}

type cvEdgeFrame struct {
	Edges   gocv.Mat
	Dilated gocv.Mat
	Count   int
}

func (f *cvEdgeFrame) EdgeCount() int {
	return f.Count
}

func (f *cvEdgeFrame) OverlapWithDilated(other edgeFrame) int {
	o := other.(*cvEdgeFrame)
	if f.Edges.Rows() != o.Dilated.Rows() || f.Edges.Cols() != o.Dilated.Cols() {
		return 0
	}
	overlap := gocv.NewMat()
	defer overlap.Close()
	gocv.BitwiseAnd(f.Edges, o.Dilated, &overlap)
	return gocv.CountNonZero(overlap)
}

func (f *cvEdgeFrame) Release() {
	f.Edges.Close()
	f.Dilated.Close()
}
