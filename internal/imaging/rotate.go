package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Rotate turns img by angle degrees counter-clockwise around its centre and
// crops the result back to the original size. Corners uncovered by the
// rotation are filled with the mean border brightness so no artificial
// edges appear around a binarized plate.
func Rotate(img image.Image, angle float64) *image.Gray {
	g := ToGray(img)
	if angle == 0 {
		return g
	}
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w == 0 || h == 0 {
		return g
	}
	bg := color.Gray{Y: MeanBorder(g)}
	rotated := imaging.Rotate(g, angle, bg)
	return ToGray(imaging.CropCenter(rotated, w, h))
}
