package imaging

import (
	"image"

	"gocv.io/x/gocv"
)

// CLAHE applies contrast-limited adaptive histogram equalization with
// OpenCV over a tilesX by tilesY grid. Histogram bins of each tile are
// clipped at clipLimit times the mean bin height; a clipLimit <= 0 disables
// clipping.
//
// The grid is reduced when the image has fewer pixels than tiles on an
// axis, so tiny crops never produce empty tiles.
func CLAHE(g *image.Gray, clipLimit float64, tilesX, tilesY int) (*image.Gray, error) {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w == 0 || h == 0 {
		return ToGray(g), nil
	}
	tilesX = clamp(tilesX, 1, w)
	tilesY = clamp(tilesY, 1, h)

	src, err := grayToMat(g)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	clahe := gocv.NewCLAHEWithParams(clipLimit, image.Point{X: tilesX, Y: tilesY})
	defer clahe.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	clahe.Apply(src, &dst)

	return matToGray(dst)
}
