package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// PreprocessOptions tunes the preprocessing chain.
type PreprocessOptions struct {
	// MinSide is the length the longer side is upscaled to when it is
	// shorter. Zero disables upscaling.
	MinSide int `json:"min_side"`

	// BlurSigma is the Gaussian sigma of the denoising blur. Zero disables it.
	BlurSigma float64 `json:"blur_sigma"`

	// ClipLimit and Tiles configure CLAHE. Tiles <= 0 disables it.
	ClipLimit float64 `json:"clip_limit"`
	Tiles     int     `json:"tiles"`

	// Polarity decides which Otsu class becomes white.
	Polarity Polarity `json:"polarity"`

	// CloseRadius applies a morphological closing after binarization.
	// Zero disables it.
	CloseRadius float64 `json:"close_radius"`
}

// DefaultPreprocessOptions returns the settings used for plate regions.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		MinSide:     400,
		BlurSigma:   0.8,
		ClipLimit:   3.0,
		Tiles:       8,
		Polarity:    PolarityBright,
		CloseRadius: 1,
	}
}

// Preprocessor prepares image regions for character recognition.
type Preprocessor struct {
	opts PreprocessOptions
}

// NewPreprocessor creates a Preprocessor.
func NewPreprocessor(opts PreprocessOptions) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// Options returns the preprocessor settings.
func (p *Preprocessor) Options() PreprocessOptions {
	return p.opts
}

// Process runs the full chain and returns a black and white image:
//
//  1. Grayscale (BT.601 luma)
//  2. Isotropic CatmullRom upscale when the longer side is below MinSide
//  3. Gaussian blur
//  4. CLAHE over Tiles x Tiles tiles (OpenCV)
//  5. Otsu binarization with the configured polarity (OpenCV)
//  6. Optional morphological closing
//
// Process never fails. If any step errors or panics the original img is
// returned unchanged together with the error, so callers can log it and
// carry on with the degraded input.
func (p *Preprocessor) Process(img image.Image) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = img
			err = fmt.Errorf("preprocess panicked: %v", r)
		}
	}()

	g, err := p.process(img)
	if err != nil {
		return img, err
	}
	return g, nil
}

func (p *Preprocessor) process(img image.Image) (*image.Gray, error) {
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, fmt.Errorf("cannot preprocess empty image %v", b)
	}

	g := ToGray(img)
	g = Upscale(g, p.opts.MinSide)

	if p.opts.BlurSigma > 0 {
		g = ToGray(imaging.Blur(g, p.opts.BlurSigma))
	}
	if p.opts.Tiles > 0 {
		eq, err := CLAHE(g, p.opts.ClipLimit, p.opts.Tiles, p.opts.Tiles)
		if err != nil {
			return nil, fmt.Errorf("clahe: %w", err)
		}
		g = eq
	}

	bin, _, err := Otsu(g, p.opts.Polarity)
	if err != nil {
		return nil, fmt.Errorf("otsu threshold: %w", err)
	}
	g = bin

	if p.opts.CloseRadius > 0 {
		g = Close(g, p.opts.CloseRadius)
	}
	return g, nil
}

// Upscale enlarges g isotropically with CatmullRom (cubic) interpolation so
// its longer side reaches minSide. Images already that large, and
// minSide <= 0, are returned as a copy.
func Upscale(g *image.Gray, minSide int) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if minSide <= 0 || longest == 0 || longest >= minSide {
		return ToGray(g)
	}
	scale := float64(minSide) / float64(longest)
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return ToGray(imaging.Resize(g, nw, nh, imaging.CatmullRom))
}

// FitWidth shrinks img to maxWidth pixels wide, preserving aspect ratio.
// It returns the image to work on and the factor that maps its coordinates
// back to img (1 when no resize happened).
func FitWidth(img image.Image, maxWidth int) (image.Image, float64) {
	w := img.Bounds().Dx()
	if maxWidth <= 0 || w <= maxWidth {
		return img, 1
	}
	resized := imaging.Resize(img, maxWidth, 0, imaging.Linear)
	return resized, float64(w) / float64(maxWidth)
}
