package imaging

import (
	"image"

	"gocv.io/x/gocv"
)

// Polarity selects which side of the threshold becomes white.
type Polarity int

const (
	// PolarityBright makes pixels brighter than the threshold white.
	PolarityBright Polarity = iota
	// PolarityDark makes pixels at or below the threshold white.
	PolarityDark
)

func (p Polarity) thresholdType() gocv.ThresholdType {
	if p == PolarityDark {
		return gocv.ThresholdBinaryInv
	}
	return gocv.ThresholdBinary
}

// Otsu binarizes g at the threshold that maximizes between-class variance
// and returns that threshold. Pixels strictly above it form the bright
// class. A uniform image yields threshold 0.
func Otsu(g *image.Gray, polarity Polarity) (*image.Gray, uint8, error) {
	return threshold(g, 0, polarity.thresholdType()|gocv.ThresholdOtsu)
}

// Binarize maps every pixel of g to 0 or 255 around a fixed threshold.
func Binarize(g *image.Gray, level uint8, polarity Polarity) (*image.Gray, error) {
	out, _, err := threshold(g, level, polarity.thresholdType())
	return out, err
}

func threshold(g *image.Gray, level uint8, typ gocv.ThresholdType) (*image.Gray, uint8, error) {
	if g.Bounds().Empty() {
		return ToGray(g), 0, nil
	}
	src, err := grayToMat(g)
	if err != nil {
		return nil, 0, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	used := gocv.Threshold(src, &dst, float32(level), 255, typ)

	out, err := matToGray(dst)
	if err != nil {
		return nil, 0, err
	}
	return out, uint8(used), nil
}
