package detection

import (
	"image"
	"sort"

	"github.com/ironsheep/plate-reader/internal/imaging"
)

// LocatorOptions bounds the connected components that qualify as plate
// candidates.
type LocatorOptions struct {
	// MinAspect and MaxAspect bound width/height, inclusive.
	MinAspect float64 `json:"min_aspect"`
	MaxAspect float64 `json:"max_aspect"`

	// MinAreaRatio and MaxAreaRatio bound box area relative to the image
	// area, exclusive.
	MinAreaRatio float64 `json:"min_area_ratio"`
	MaxAreaRatio float64 `json:"max_area_ratio"`

	// MinWidth and MinHeight reject noise specks, inclusive.
	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`

	// Padding is added on every side of a surviving box before clamping.
	Padding int `json:"padding"`

	// DilateRadius and DilateIterations merge nearby character strokes
	// into a single blob.
	DilateRadius     float64 `json:"dilate_radius"`
	DilateIterations int     `json:"dilate_iterations"`
}

// DefaultLocatorOptions returns the plate-plausible geometry used by the
// detection pipeline.
func DefaultLocatorOptions() LocatorOptions {
	return LocatorOptions{
		MinAspect:        1.2,
		MaxAspect:        8.0,
		MinAreaRatio:     0.0005,
		MaxAreaRatio:     0.6,
		MinWidth:         40,
		MinHeight:        15,
		Padding:          8,
		DilateRadius:     1,
		DilateIterations: 2,
	}
}

// Locator proposes plate-shaped regions from the edge structure of an image.
type Locator struct {
	opts LocatorOptions
}

// NewLocator creates a Locator.
func NewLocator(opts LocatorOptions) *Locator {
	return &Locator{opts: opts}
}

// Options returns the locator settings.
func (l *Locator) Options() LocatorOptions {
	return l.opts
}

// Candidates returns plate candidate regions of img, largest first.
//
// # Algorithm
//
//  1. Canny edge map with thresholds at 0.66x and 1.33x the median
//     brightness
//  2. Dilation of the edge map so the strokes of one plate join up
//  3. Bounding boxes of 8-connected components
//  4. Filtering by aspect ratio, relative area and minimum size
//  5. Stable sort by area, descending
//  6. Padding by Padding pixels, clamped to the image
//
// Regions are in img's coordinate space. An image with no edges (blank or
// uniform) yields no candidates.
func (l *Locator) Candidates(img image.Image) []imaging.Region {
	bounds := img.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return nil
	}

	gray := imaging.ToGray(img)
	low, high := imaging.AutoCannyThresholds(gray)
	edges := imaging.Canny(gray, low, high)
	if l.opts.DilateIterations > 0 && l.opts.DilateRadius > 0 {
		edges = imaging.Dilate(edges, l.opts.DilateRadius, l.opts.DilateIterations)
	}

	imageArea := float64(bounds.Dx() * bounds.Dy())
	boxes := make([]imaging.Region, 0)
	for _, r := range ConnectedComponents(edges) {
		if l.accept(r, imageArea) {
			boxes = append(boxes, r)
		}
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Area() > boxes[j].Area()
	})

	// Components were found on a 0-based copy; shift back to img.
	local := imaging.RegionFromRect(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	out := make([]imaging.Region, 0, len(boxes))
	for _, r := range boxes {
		r = r.Pad(l.opts.Padding).Clamp(local.Rect())
		out = append(out, imaging.Region{
			X1: r.X1 + bounds.Min.X,
			Y1: r.Y1 + bounds.Min.Y,
			X2: r.X2 + bounds.Min.X,
			Y2: r.Y2 + bounds.Min.Y,
		})
	}
	return out
}

func (l *Locator) accept(r imaging.Region, imageArea float64) bool {
	if r.Height() == 0 {
		return false
	}
	ar := r.AspectRatio()
	if ar < l.opts.MinAspect || ar > l.opts.MaxAspect {
		return false
	}
	ratio := float64(r.Area()) / imageArea
	if ratio <= l.opts.MinAreaRatio || ratio >= l.opts.MaxAreaRatio {
		return false
	}
	return r.Width() >= l.opts.MinWidth && r.Height() >= l.opts.MinHeight
}
