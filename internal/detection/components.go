package detection

import (
	"image"

	"github.com/ironsheep/plate-reader/internal/imaging"
)

// ConnectedComponents returns the bounding box of every 8-connected group
// of non-zero pixels in mask, in raster order of each group's first pixel.
// Returned regions use the coordinates of mask.
func ConnectedComponents(mask *image.Gray) []imaging.Region {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()

	visited := make([]bool, width*height)
	regions := make([]imaging.Region, 0)

	for y := 0; y < height; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			if row[x] == 0 || visited[y*width+x] {
				continue
			}
			r := floodFill(mask, visited, x, y)
			regions = append(regions, imaging.Region{
				X1: r.X1 + b.Min.X,
				Y1: r.Y1 + b.Min.Y,
				X2: r.X2 + b.Min.X,
				Y2: r.Y2 + b.Min.Y,
			})
		}
	}
	return regions
}

// floodFill marks the component containing (startX, startY) as visited and
// returns its bounding box in 0-based coordinates. It uses an explicit stack
// so large blobs cannot overflow the goroutine stack.
func floodFill(mask *image.Gray, visited []bool, startX, startY int) imaging.Region {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()

	box := imaging.Region{X1: startX, Y1: startY, X2: startX + 1, Y2: startY + 1}
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < box.X1 {
			box.X1 = p.X
		}
		if p.X+1 > box.X2 {
			box.X2 = p.X + 1
		}
		if p.Y < box.Y1 {
			box.Y1 = p.Y
		}
		if p.Y+1 > box.Y2 {
			box.Y2 = p.Y + 1
		}

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				idx := ny*width + nx
				if visited[idx] || mask.Pix[mask.PixOffset(b.Min.X+nx, b.Min.Y+ny)] == 0 {
					continue
				}
				visited[idx] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return box
}
