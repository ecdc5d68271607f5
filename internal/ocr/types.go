package ocr

import (
	"image"
	"math"

	"github.com/ironsheep/plate-reader/internal/plate"
)

// PlateAlphabet is the character set plates are written in.
const PlateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Segmentation tells the engine what layout to expect.
type Segmentation int

const (
	SegmentSingleWord Segmentation = iota
	SegmentSingleLine
	SegmentSparseText
	SegmentSingleBlock
)

func (s Segmentation) String() string {
	switch s {
	case SegmentSingleWord:
		return "single_word"
	case SegmentSingleLine:
		return "single_line"
	case SegmentSparseText:
		return "sparse_text"
	case SegmentSingleBlock:
		return "single_block"
	default:
		return "unknown"
	}
}

// EngineMode selects the recognition model family where an engine has more
// than one.
type EngineMode int

const (
	EngineDefault EngineMode = iota
	EngineLSTM
	EngineLegacy
)

func (m EngineMode) String() string {
	switch m {
	case EngineLSTM:
		return "lstm"
	case EngineLegacy:
		return "legacy"
	default:
		return "default"
	}
}

// Profile is one recognizer configuration.
type Profile struct {
	Name         string       `json:"name"`
	Segmentation Segmentation `json:"segmentation"`
	Engine       EngineMode   `json:"engine"`

	// Whitelist limits the characters the engine may emit. Empty means no
	// restriction.
	Whitelist string `json:"whitelist,omitempty"`
}

// DefaultProfiles returns the profiles tried for every region, in order.
// The first profile is also the one used for rotation retries.
func DefaultProfiles() []Profile {
	wl := PlateAlphabet + " -"
	return []Profile{
		{Name: "single_word", Segmentation: SegmentSingleWord, Engine: EngineDefault, Whitelist: wl},
		{Name: "single_line", Segmentation: SegmentSingleLine, Engine: EngineDefault, Whitelist: wl},
		{Name: "sparse_lstm", Segmentation: SegmentSparseText, Engine: EngineLSTM, Whitelist: wl},
		{Name: "single_block", Segmentation: SegmentSingleBlock, Engine: EngineDefault, Whitelist: wl},
	}
}

// Scale records how an engine expressed a confidence value.
type Scale int

const (
	// ScaleUnknown lets plate.NormalizeConfidence guess from the value.
	ScaleUnknown Scale = iota
	// ScaleFraction values are already in [0, 1].
	ScaleFraction
	// ScalePercent values are in [0, 100]; negatives mean "no score".
	ScalePercent
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// BoundsFromRect converts an image.Rectangle.
func BoundsFromRect(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Token is one piece of text read by an engine.
type Token struct {
	// Text is the raw recognized text, before any plate normalization.
	Text string `json:"text"`

	// Bounds locates the text in the image handed to the engine.
	Bounds Bounds `json:"bounds"`

	// Confidence is the engine's native score, interpreted through Scale.
	Confidence float64 `json:"confidence"`
	Scale      Scale   `json:"-"`
}

// Score returns the token confidence in [0, 1].
func (t Token) Score() float64 {
	switch t.Scale {
	case ScalePercent:
		if t.Confidence < 0 || math.IsNaN(t.Confidence) {
			return 0
		}
		return math.Min(t.Confidence/100, 1)
	case ScaleFraction:
		if t.Confidence < 0 || math.IsNaN(t.Confidence) {
			return 0
		}
		return math.Min(t.Confidence, 1)
	default:
		return plate.NormalizeConfidence(t.Confidence)
	}
}

// Recognizer reads text from an image using one profile.
type Recognizer interface {
	// Name identifies the engine in logs and health output.
	Name() string

	// Recognize returns every token the engine found. An error means the
	// attempt itself failed; an empty slice means nothing was read.
	Recognize(img image.Image, profile Profile) ([]Token, error)
}
