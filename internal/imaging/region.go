package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
//   - Width = X2 - X1, Height = Y2 - Y1
type Region struct {
	X1 int `json:"x1"` // Left edge X coordinate (inclusive)
	Y1 int `json:"y1"` // Top edge Y coordinate (inclusive)
	X2 int `json:"x2"` // Right edge X coordinate (exclusive)
	Y2 int `json:"y2"` // Bottom edge Y coordinate (exclusive)
}

// RegionFromRect converts an image.Rectangle.
func RegionFromRect(r image.Rectangle) Region {
	return Region{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (r Region) Width() int  { return r.X2 - r.X1 }
func (r Region) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Area is Width*Height, or 0 for an empty region.
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// AspectRatio is Width/Height, or 0 for an empty region.
func (r Region) AspectRatio() float64 {
	if r.Empty() {
		return 0
	}
	return float64(r.Width()) / float64(r.Height())
}

// Pad grows the region by margin pixels on every side.
func (r Region) Pad(margin int) Region {
	return Region{X1: r.X1 - margin, Y1: r.Y1 - margin, X2: r.X2 + margin, Y2: r.Y2 + margin}
}

// Clamp limits the region to bounds. The result may be empty.
func (r Region) Clamp(bounds image.Rectangle) Region {
	return RegionFromRect(r.Rect().Intersect(bounds))
}

// Scale multiplies every coordinate by f, rounding outward.
func (r Region) Scale(f float64) Region {
	if f == 1 {
		return r
	}
	return Region{
		X1: int(float64(r.X1) * f),
		Y1: int(float64(r.Y1) * f),
		X2: int(float64(r.X2)*f + 0.999),
		Y2: int(float64(r.Y2)*f + 0.999),
	}
}

// Overlaps reports whether two regions share at least one pixel.
func (r Region) Overlaps(o Region) bool {
	return r.X1 < o.X2 && r.X2 > o.X1 && r.Y1 < o.Y2 && r.Y2 > o.Y1
}

// CropRegion clamps r to the image and returns a copy of that area with
// bounds starting at (0,0).
//
// Returns an error when the clamped region is empty.
func CropRegion(img image.Image, r Region) (*image.NRGBA, error) {
	c := r.Clamp(img.Bounds())
	if c.Empty() {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) does not intersect image bounds %v",
			r.X1, r.Y1, r.X2, r.Y2, img.Bounds())
	}
	return imaging.Crop(img, c.Rect()), nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
