package imaging

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Plate background colour names returned by ClassifyPlateColor.
const (
	ColorWhite   = "white"
	ColorBlack   = "black"
	ColorGray    = "gray"
	ColorRed     = "red"
	ColorYellow  = "yellow"
	ColorGreen   = "green"
	ColorBlue    = "blue"
	ColorUnknown = "unknown"
)

// DominantColor returns the most frequent colour in region of img. Every
// pixel of the region is sampled, glyphs included.
//
// Colours are quantized by dividing each 8-bit component by 16 so that
// near-identical shades share a bucket; the returned colour is the mean of
// the winning bucket. ok is false when the region holds no opaque pixels.
func DominantColor(img image.Image, region Region) (c colorful.Color, ok bool) {
	r := region.Clamp(img.Bounds())
	if r.Empty() {
		return colorful.Color{}, false
	}

	type bucket struct {
		n       int
		r, g, b int
	}
	buckets := make(map[int]*bucket)
	var best *bucket

	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			if ca == 0 {
				continue
			}
			r8, g8, b8 := int(cr>>8), int(cg>>8), int(cb>>8)
			key := (r8/16)<<8 | (g8/16)<<4 | b8/16
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.n++
			bk.r += r8
			bk.g += g8
			bk.b += b8
			if best == nil || bk.n > best.n {
				best = bk
			}
		}
	}
	if best == nil {
		return colorful.Color{}, false
	}

	n := float64(best.n)
	return colorful.Color{
		R: float64(best.r) / n / 255,
		G: float64(best.g) / n / 255,
		B: float64(best.b) / n / 255,
	}, true
}

// ClassifyPlateColor names the dominant background colour of a plate
// region. Low-saturation colours are split into white, gray and black by
// lightness; saturated ones are named by hue.
func ClassifyPlateColor(img image.Image, region Region) string {
	c, ok := DominantColor(img, region)
	if !ok {
		return ColorUnknown
	}
	return colorName(c)
}

func colorName(c colorful.Color) string {
	h, s, l := c.Hsl()

	switch {
	case l >= 0.9:
		return ColorWhite
	case l <= 0.12:
		return ColorBlack
	case s < 0.2:
		if l >= 0.65 {
			return ColorWhite
		}
		if l <= 0.3 {
			return ColorBlack
		}
		return ColorGray
	}

	switch {
	case h < 20 || h >= 330:
		return ColorRed
	case h < 70:
		return ColorYellow
	case h < 170:
		return ColorGreen
	case h < 270:
		return ColorBlue
	}
	return ColorUnknown
}
