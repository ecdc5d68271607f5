package imaging

import (
	"image"
	"math"
)

// Canny performs Canny edge detection on an image.
//
// The result is a grayscale image where white pixels (255) mark edges and
// black pixels (0) mark everything else. Thresholds are expressed in Sobel
// gradient magnitude over 0-255 luma, the scale AutoCannyThresholds returns.
//
// # Algorithm
//
//  1. Grayscale conversion (BT.601)
//
//  2. Gaussian blur: 5x5 kernel to reduce noise
//
//  3. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  4. Non-maximum suppression: thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  5. Hysteresis:
//     - Pixels strictly above high are strong edges
//     - Pixels strictly above low are weak edges, kept only when
//     connected (8-neighbourhood, transitively) to a strong edge
//
// Comparisons are strict so that a flat image never produces edges, even
// with zero thresholds.
func Canny(img image.Image, low, high float64) *image.Gray {
	g := ToGray(img)
	width, height := g.Bounds().Dx(), g.Bounds().Dy()
	result := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return result
	}

	gray := make([][]float64, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		row := g.Pix[y*g.Stride:]
		for x := 0; x < width; x++ {
			gray[y][x] = float64(row[x])
		}
	}

	blurred := gaussianBlur(gray, width, height)

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)

	sobelX := [][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += blurred[py][px] * sobelX[ky+1][kx+1]
					gy += blurred[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]
			if mag < 1e-9 {
				continue
			}

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	// Hysteresis: seed from strong edges and grow through weak ones.
	var stack []image.Point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] > 0 && suppressed[y][x] > high {
				result.Pix[y*result.Stride+x] = 255
				stack = append(stack, image.Point{X: x, Y: y})
			}
		}
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for ky := -1; ky <= 1; ky++ {
			for kx := -1; kx <= 1; kx++ {
				px, py := p.X+kx, p.Y+ky
				if px < 0 || py < 0 || px >= width || py >= height {
					continue
				}
				idx := py*result.Stride + px
				if result.Pix[idx] != 0 {
					continue
				}
				if v := suppressed[py][px]; v > 0 && v > low {
					result.Pix[idx] = 255
					stack = append(stack, image.Point{X: px, Y: py})
				}
			}
		}
	}

	return result
}

// AutoCannyThresholds derives Canny thresholds from the median intensity
// of g: low is 0.66*median, high is 1.33*median capped at 255.
func AutoCannyThresholds(g *image.Gray) (low, high float64) {
	m := float64(Median(g))
	low = math.Max(0, 0.66*m)
	high = math.Min(255, 1.33*m)
	return low, high
}

// gaussianBlur applies a 5x5 Gaussian blur to reduce noise before edge detection.
//
// Uses a standard 5x5 Gaussian kernel with sigma ≈ 1.4:
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// Total kernel sum = 273, used for normalization.
// Border pixels use clamped (replicated) edge values.
func gaussianBlur(img [][]float64, width, height int) [][]float64 {
	kernel := [][]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	kernelSum := 273.0

	result := make([][]float64, height)
	for y := 0; y < height; y++ {
		result[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					sum += img[py][px] * kernel[ky+2][kx+2]
				}
			}
			result[y][x] = sum / kernelSum
		}
	}
	return result
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
