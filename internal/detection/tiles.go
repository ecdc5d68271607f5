package detection

import (
	"image"

	"github.com/ironsheep/plate-reader/internal/imaging"
)

// TileOptions sizes the sliding window used when no plate-shaped region
// could be read.
type TileOptions struct {
	// MinWidth and MinHeight are lower bounds on the tile size.
	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`

	// WidthDivisor and HeightDivisor size a tile as a fraction of the image.
	WidthDivisor  int `json:"width_divisor"`
	HeightDivisor int `json:"height_divisor"`
}

// DefaultTileOptions returns tiles of max(200, w/3) by max(60, h/6).
func DefaultTileOptions() TileOptions {
	return TileOptions{
		MinWidth:      200,
		MinHeight:     60,
		WidthDivisor:  3,
		HeightDivisor: 6,
	}
}

// Tiles returns overlapping windows covering bounds in row-major order.
//
// The stride is half the tile size on each axis. Windows start at every
// stride step inside bounds and are clipped at the right and bottom edges,
// so edge tiles may be smaller than the nominal size.
func Tiles(bounds image.Rectangle, opts TileOptions) []imaging.Region {
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	tileW, tileH := opts.MinWidth, opts.MinHeight
	if opts.WidthDivisor > 0 && w/opts.WidthDivisor > tileW {
		tileW = w / opts.WidthDivisor
	}
	if opts.HeightDivisor > 0 && h/opts.HeightDivisor > tileH {
		tileH = h / opts.HeightDivisor
	}
	stepX := maxInt(1, tileW/2)
	stepY := maxInt(1, tileH/2)

	tiles := make([]imaging.Region, 0, (w/stepX+1)*(h/stepY+1))
	for y := 0; y < h; y += stepY {
		for x := 0; x < w; x += stepX {
			tiles = append(tiles, imaging.Region{
				X1: bounds.Min.X + x,
				Y1: bounds.Min.Y + y,
				X2: bounds.Min.X + minInt(w, x+tileW),
				Y2: bounds.Min.Y + minInt(h, y+tileH),
			})
		}
	}
	return tiles
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
