package imaging

import (
	"image"
	"image/color"
)

// ToGray converts img to 8-bit luminance using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B). The result always starts at (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			so := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[so:so+w])
		}
		return dst
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			so := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := dst.Pix[y*dst.Stride:]
			for x := 0; x < w; x++ {
				p := src.Pix[so+4*x : so+4*x+4]
				row[x] = luma(uint32(p[0]), uint32(p[1]), uint32(p[2]), uint32(p[3]))
			}
		}
		return dst
	}

	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			row[x] = luma(uint32(c.R), uint32(c.G), uint32(c.B), uint32(c.A))
		}
	}
	return dst
}

// luma blends non-premultiplied 8-bit RGBA over white and returns BT.601
// luminance. Fully transparent pixels read as white.
func luma(r, g, b, a uint32) uint8 {
	if a < 255 {
		r = (r*a + 255*(255-a)) / 255
		g = (g*a + 255*(255-a)) / 255
		b = (b*a + 255*(255-a)) / 255
	}
	return uint8((299*r + 587*g + 114*b + 500) / 1000)
}

// Histogram counts pixel values of a grayscale image.
func Histogram(g *image.Gray) [256]int {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := g.PixOffset(b.Min.X, y)
		for _, v := range g.Pix[off : off+b.Dx()] {
			hist[v]++
		}
	}
	return hist
}

// Median returns the median pixel value of g, or 0 for an empty image.
func Median(g *image.Gray) uint8 {
	hist := Histogram(g)
	total := g.Bounds().Dx() * g.Bounds().Dy()
	if total == 0 {
		return 0
	}
	half := (total + 1) / 2
	seen := 0
	for v, n := range hist {
		seen += n
		if seen >= half {
			return uint8(v)
		}
	}
	return 255
}

// MeanBorder returns the mean value of the outermost pixel ring of g.
func MeanBorder(g *image.Gray) uint8 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	sum, n := 0, 0
	for x := 0; x < w; x++ {
		sum += int(g.GrayAt(b.Min.X+x, b.Min.Y).Y) + int(g.GrayAt(b.Min.X+x, b.Max.Y-1).Y)
		n += 2
	}
	for y := 1; y < h-1; y++ {
		sum += int(g.GrayAt(b.Min.X, b.Min.Y+y).Y) + int(g.GrayAt(b.Max.X-1, b.Min.Y+y).Y)
		n += 2
	}
	return uint8(sum / n)
}
