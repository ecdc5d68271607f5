package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// Dilate grows bright areas of g by radius pixels, repeated iterations
// times.
func Dilate(g *image.Gray, radius float64, iterations int) *image.Gray {
	out := ToGray(g)
	for i := 0; i < iterations; i++ {
		out = ToGray(effect.Dilate(out, radius))
	}
	return out
}

// Erode shrinks bright areas of g by radius pixels, repeated iterations
// times.
func Erode(g *image.Gray, radius float64, iterations int) *image.Gray {
	out := ToGray(g)
	for i := 0; i < iterations; i++ {
		out = ToGray(effect.Erode(out, radius))
	}
	return out
}

// Close performs a morphological closing (dilate then erode). It bridges
// small gaps between bright strokes without growing them overall.
func Close(g *image.Gray, radius float64) *image.Gray {
	return Erode(Dilate(g, radius, 1), radius, 1)
}
