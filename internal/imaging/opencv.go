package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// grayToMat wraps a zero-origin copy of g in a single-channel 8-bit Mat.
// The caller must Close it.
func grayToMat(g *image.Gray) (gocv.Mat, error) {
	src := ToGray(g)
	b := src.Bounds()
	m, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, src.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap %dx%d gray image: %w", b.Dx(), b.Dy(), err)
	}
	return m, nil
}

// matToGray copies a single-channel 8-bit Mat into a new *image.Gray.
func matToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected CV_8UC1 mat, got %v", m.Type())
	}
	w, h := m.Cols(), m.Rows()
	return &image.Gray{
		Pix:    m.ToBytes(),
		Stride: w,
		Rect:   image.Rect(0, 0, w, h),
	}, nil
}
