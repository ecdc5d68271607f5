package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createPlateLikeImage draws dark bars (stand-ins for characters) on a light
// plate with a gentle lighting gradient.
func createPlateLikeImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(200 + 40*x/width)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	for i := 0; i < 6; i++ {
		x0 := width/10 + i*width/7
		fillRect(img, image.Rect(x0, height/4, x0+width/20, 3*height/4), color.RGBA{20, 20, 20, 255})
	}
	return img
}

func TestPreprocessor_BinaryOutput(t *testing.T) {
	p := NewPreprocessor(DefaultPreprocessOptions())
	img := createPlateLikeImage(140, 40)

	out, err := p.Process(img)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	g, ok := out.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", out)
	}
	if g.Bounds().Dx() != 400 {
		t.Errorf("width: got %d, want 400 after upscale", g.Bounds().Dx())
	}

	var black, white int
	for _, v := range g.Pix {
		switch v {
		case 0:
			black++
		case 255:
			white++
		default:
			t.Fatalf("non-binary pixel value %d", v)
		}
	}
	if black == 0 || white == 0 {
		t.Errorf("expected both classes, got black=%d white=%d", black, white)
	}
}

func TestPreprocessor_LargeImageNotUpscaled(t *testing.T) {
	opts := DefaultPreprocessOptions()
	opts.CloseRadius = 0
	p := NewPreprocessor(opts)

	out, err := p.Process(createPlateLikeImage(500, 120))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 500, 120) {
		t.Errorf("bounds: got %v, want unchanged 500x120", out.Bounds())
	}
}

func TestPreprocessor_EmptyReturnsInput(t *testing.T) {
	p := NewPreprocessor(DefaultPreprocessOptions())
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))

	out, err := p.Process(empty)
	if err == nil {
		t.Error("expected an error for an empty image")
	}
	if out != image.Image(empty) {
		t.Error("expected the original input back on failure")
	}
}

func TestPreprocessor_RecoversPanic(t *testing.T) {
	p := NewPreprocessor(DefaultPreprocessOptions())

	out, err := p.Process(nil)
	if err == nil {
		t.Error("expected an error when preprocessing panics")
	}
	if out != nil {
		t.Errorf("expected the nil input back, got %T", out)
	}
}

func TestUpscale(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 100, 25))

	up := Upscale(g, 400)
	if up.Bounds().Dx() != 400 || up.Bounds().Dy() != 100 {
		t.Errorf("Upscale: got %v, want 400x100", up.Bounds())
	}

	tall := Upscale(image.NewGray(image.Rect(0, 0, 30, 200)), 400)
	if tall.Bounds().Dx() != 60 || tall.Bounds().Dy() != 400 {
		t.Errorf("Upscale tall: got %v, want 60x400", tall.Bounds())
	}

	same := Upscale(image.NewGray(image.Rect(0, 0, 450, 100)), 400)
	if same.Bounds().Dx() != 450 {
		t.Errorf("large image should not be resized, got %v", same.Bounds())
	}
}

func TestFitWidth(t *testing.T) {
	img := createInMemoryImage(2400, 1200, color.RGBA{10, 20, 30, 255})

	out, scale := FitWidth(img, 1200)
	if out.Bounds().Dx() != 1200 || out.Bounds().Dy() != 600 {
		t.Errorf("FitWidth: got %v, want 1200x600", out.Bounds())
	}
	if scale != 2 {
		t.Errorf("scale: got %f, want 2", scale)
	}

	small := createInMemoryImage(800, 600, color.RGBA{10, 20, 30, 255})
	out, scale = FitWidth(small, 1200)
	if out != image.Image(small) || scale != 1 {
		t.Error("FitWidth should return narrow images untouched")
	}
}
