package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestDilate_GrowsSinglePixel(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 9, 9))
	g.SetGray(4, 4, color.Gray{Y: 255})

	out := Dilate(g, 1, 1)

	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			if out.GrayAt(x, y).Y != 255 {
				t.Errorf("expected (%d,%d) to be white after dilation", x, y)
			}
		}
	}
	if out.GrayAt(0, 0).Y != 0 || out.GrayAt(7, 4).Y != 0 {
		t.Error("dilation by radius 1 reached too far")
	}
	if g.GrayAt(3, 3).Y != 0 {
		t.Error("Dilate must not modify its input")
	}
}

func TestErode_RemovesSinglePixel(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 9, 9))
	g.SetGray(4, 4, color.Gray{Y: 255})

	out := Erode(g, 1, 1)
	for _, v := range out.Pix {
		if v != 0 {
			t.Fatal("erosion should remove an isolated pixel")
		}
	}
}

func TestClose_BridgesGap(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 20, 9))
	for x := 2; x < 18; x++ {
		if x == 9 {
			continue
		}
		for y := 3; y < 6; y++ {
			g.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out := Close(g, 1)
	if out.GrayAt(9, 4).Y != 255 {
		t.Error("closing should bridge a one pixel gap in a stroke")
	}
	if out.GrayAt(9, 0).Y != 0 {
		t.Error("closing should not fill background far from strokes")
	}
}

func TestRotate(t *testing.T) {
	img := createInMemoryImage(80, 40, color.RGBA{120, 120, 120, 255})

	same := Rotate(img, 0)
	if same.Bounds() != image.Rect(0, 0, 80, 40) {
		t.Fatalf("Rotate(0) bounds: got %v", same.Bounds())
	}

	rotated := Rotate(img, 10)
	if rotated.Bounds() != image.Rect(0, 0, 80, 40) {
		t.Fatalf("Rotate(10) bounds: got %v, want original size", rotated.Bounds())
	}
	for i, v := range rotated.Pix {
		if math.Abs(float64(v)-120) > 1 {
			t.Fatalf("uniform image should stay uniform after rotation, pixel %d = %d", i, v)
		}
	}
}

func TestCanny_UniformHasNoEdges(t *testing.T) {
	for _, v := range []uint8{0, 128, 255} {
		img := createInMemoryImage(40, 40, color.RGBA{v, v, v, 255})
		low, high := AutoCannyThresholds(ToGray(img))
		edges := Canny(img, low, high)
		for _, p := range edges.Pix {
			if p != 0 {
				t.Fatalf("uniform %d image produced an edge", v)
			}
		}
	}
}

func TestCanny_SquareOutline(t *testing.T) {
	img := createInMemoryImage(60, 60, color.RGBA{0, 0, 0, 255})
	fillRect(img, image.Rect(20, 20, 40, 40), color.RGBA{255, 255, 255, 255})

	low, high := AutoCannyThresholds(ToGray(img))
	edges := Canny(img, low, high)

	count := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			if edges.GrayAt(x, y).Y == 0 {
				continue
			}
			count++
			if x < 16 || x > 44 || y < 16 || y > 44 {
				t.Fatalf("edge at (%d,%d) is far from the square", x, y)
			}
			if x >= 25 && x < 35 && y >= 25 && y < 35 {
				t.Fatalf("edge at (%d,%d) is inside the flat interior", x, y)
			}
		}
	}
	if count == 0 {
		t.Error("expected edges around the square")
	}
}

func TestCanny_HighThresholdSuppressesAll(t *testing.T) {
	img := createInMemoryImage(60, 60, color.RGBA{0, 0, 0, 255})
	fillRect(img, image.Rect(20, 20, 40, 40), color.RGBA{255, 255, 255, 255})

	edges := Canny(img, 0, 1e6)
	for _, p := range edges.Pix {
		if p != 0 {
			t.Fatal("no pixel should pass an unreachable high threshold")
		}
	}
}

func TestAutoCannyThresholds(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range g.Pix {
		g.Pix[i] = 100
	}
	low, high := AutoCannyThresholds(g)
	if math.Abs(low-66) > 1e-9 || math.Abs(high-133) > 1e-9 {
		t.Errorf("thresholds: got %f/%f, want 66/133", low, high)
	}

	for i := range g.Pix {
		g.Pix[i] = 250
	}
	if _, high := AutoCannyThresholds(g); high != 255 {
		t.Errorf("high threshold should cap at 255, got %f", high)
	}
}
