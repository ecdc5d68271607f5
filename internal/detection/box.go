package detection

import (
	"image"

	"github.com/ironsheep/plate-reader/internal/imaging"
)

// Box is one plate proposal from a learned object detector.
type Box struct {
	Region     imaging.Region `json:"region"`
	Confidence float64        `json:"confidence"`
	Class      string         `json:"class,omitempty"`
}

// LearnedDetector proposes plate boxes at or above a confidence threshold.
//
// Implementations wrap an externally trained model. A detector that is not
// loaded or unreachable returns an error; the pipeline then falls back to
// the geometric Locator.
type LearnedDetector interface {
	Name() string
	Detect(img image.Image, threshold float64) ([]Box, error)
}

// ClampBoxes clamps every box to bounds and drops boxes left empty.
func ClampBoxes(boxes []Box, bounds image.Rectangle) []Box {
	out := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		b.Region = b.Region.Clamp(bounds)
		if b.Region.Empty() {
			continue
		}
		out = append(out, b)
	}
	return out
}
