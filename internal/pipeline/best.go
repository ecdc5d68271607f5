package pipeline

import "github.com/ironsheep/plate-reader/internal/imaging"

// Candidate is one validated plate reading.
type Candidate struct {
	// Text is canonical, corrected and validated.
	Text string `json:"text"`

	// Confidence is the score used for ranking. For readings inside a
	// learned detector box it is the weighted combination of
	// DetectorConfidence and OCRConfidence.
	Confidence         float64 `json:"confidence"`
	OCRConfidence      float64 `json:"ocr_confidence"`
	DetectorConfidence float64 `json:"detector_confidence,omitempty"`

	// Profile names the recognizer profile that produced the text.
	Profile string `json:"profile"`

	// Angle is the rotation applied before recognition, 0 unless the
	// rotation fallback produced the reading.
	Angle float64 `json:"angle,omitempty"`

	// Region locates the reading in the coordinates of the image passed to
	// Detect.
	Region imaging.Region `json:"region"`
}

// Best tracks the highest-confidence candidate offered so far. A candidate
// replaces the current best only when its confidence is strictly greater,
// so ties keep the first one found.
//
// The zero value is empty and ready to use.
type Best struct {
	cand  Candidate
	found bool
}

// Offer considers c and reports whether it became the new best.
func (b *Best) Offer(c Candidate) bool {
	if b.found && c.Confidence <= b.cand.Confidence {
		return false
	}
	b.cand = c
	b.found = true
	return true
}

// Get returns the best candidate and whether there is one.
func (b *Best) Get() (Candidate, bool) {
	return b.cand, b.found
}

// Confidence is the best confidence so far, or 0.
func (b *Best) Confidence() float64 {
	if !b.found {
		return 0
	}
	return b.cand.Confidence
}
