package pipeline

import (
	"fmt"
	"time"

	"github.com/ironsheep/plate-reader/internal/detection"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/ocr"
	"github.com/ironsheep/plate-reader/internal/plate"
)

// Strategy names, in their default order.
const (
	StageLearned = "learned"
	StageLocator = "locator"
	StageTiles   = "tiles"
	StageWhole   = "whole"
)

// DefaultStages is the order strategies run in unless configured otherwise.
var DefaultStages = []string{StageLearned, StageLocator, StageTiles, StageWhole}

// Config holds every tunable of the detection pipeline. One Config
// describes one deployment locale; there is no per-locale code path.
type Config struct {
	// Profiles are tried in order on every region. Profiles[0] is also used
	// for rotation retries.
	Profiles []ocr.Profile

	// MinConfidence drops OCR tokens scoring below it.
	MinConfidence float64

	// RotationFallback retries a region at RotationAngles (degrees) when no
	// profile produced a valid plate.
	RotationFallback bool
	RotationAngles   []float64

	// EarlyExitConfidence stops the locator and tile scans once the best
	// plate reaches it.
	EarlyExitConfidence float64

	// DetectorThresholds are tried in order until the learned detector
	// proposes at least one box.
	DetectorThresholds []float64

	// DetectorWeight and OCRWeight combine the detector's localization
	// confidence with the text confidence of plates found in its boxes.
	DetectorWeight float64
	OCRWeight      float64

	// MaxImageWidth downscales wider images before locating. Zero disables.
	MaxImageWidth int

	// Stages lists strategy names in the order they run.
	Stages []string

	Preprocess imaging.PreprocessOptions
	Locator    detection.LocatorOptions
	Tiles      detection.TileOptions

	// Rules drive plate validation; CorrectConfusions enables the
	// positional character-confusion corrector.
	Rules             plate.Rules
	CorrectConfusions bool

	// Timeout is the deadline DetectContext callers are expected to apply.
	// The pipeline itself does not enforce it.
	Timeout time.Duration
}

// DefaultConfig returns the tuned defaults for the international locale.
func DefaultConfig() Config {
	return Config{
		Profiles:            ocr.DefaultProfiles(),
		MinConfidence:       0.5,
		RotationFallback:    true,
		RotationAngles:      []float64{-10, -5, 5, 10},
		EarlyExitConfidence: 0.9,
		DetectorThresholds:  []float64{0.5, 0.35, 0.25},
		DetectorWeight:      0.6,
		OCRWeight:           0.4,
		MaxImageWidth:       1200,
		Stages:              append([]string(nil), DefaultStages...),
		Preprocess:          imaging.DefaultPreprocessOptions(),
		Locator:             detection.DefaultLocatorOptions(),
		Tiles:               detection.DefaultTileOptions(),
		Rules:               plate.International(),
		CorrectConfusions:   true,
		Timeout:             30 * time.Second,
	}
}

// Problems lists every invalid setting. An empty result means the config
// can build a Detector.
func (c Config) Problems() []string {
	var problems []string

	if len(c.Profiles) == 0 {
		problems = append(problems, "at least one OCR profile is required")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		problems = append(problems, fmt.Sprintf("min confidence %.2f outside [0,1]", c.MinConfidence))
	}
	if c.EarlyExitConfidence < 0 || c.EarlyExitConfidence > 1 {
		problems = append(problems, fmt.Sprintf("early exit confidence %.2f outside [0,1]", c.EarlyExitConfidence))
	}
	for _, th := range c.DetectorThresholds {
		if th < 0 || th > 1 {
			problems = append(problems, fmt.Sprintf("detector threshold %.2f outside [0,1]", th))
		}
	}
	if c.DetectorWeight < 0 || c.OCRWeight < 0 || c.DetectorWeight+c.OCRWeight <= 0 {
		problems = append(problems, "detector and OCR weights must be non-negative and not both zero")
	}
	if c.MaxImageWidth < 0 {
		problems = append(problems, "max image width must not be negative")
	}

	seen := make(map[string]bool)
	for _, s := range c.Stages {
		switch s {
		case StageLearned, StageLocator, StageTiles, StageWhole:
		default:
			problems = append(problems, fmt.Sprintf("unknown stage %q", s))
		}
		if seen[s] {
			problems = append(problems, fmt.Sprintf("stage %q listed twice", s))
		}
		seen[s] = true
	}
	if len(c.Stages) == 0 {
		problems = append(problems, "at least one stage is required")
	}

	if _, err := plate.NewValidator(c.Rules); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// combine weighs detector and OCR confidence, normalized by the weight sum
// so the result stays in [0,1].
func (c Config) combine(detector, text float64) float64 {
	sum := c.DetectorWeight + c.OCRWeight
	if sum <= 0 {
		return text
	}
	return (c.DetectorWeight*detector + c.OCRWeight*text) / sum
}
