package pipeline

import (
	stderrors "errors"
	"image"
	"strings"

	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/logging"
	"github.com/ironsheep/plate-reader/internal/ocr"
	"github.com/ironsheep/plate-reader/internal/plate"
)

// RegionReader reads the best plate out of one region image: preprocess,
// run every profile, keep the best valid token, then retry rotated copies
// with the first profile when nothing was found.
//
// A RegionReader holds no mutable state and is safe for concurrent use as
// long as its Recognizer is.
type RegionReader struct {
	rec    ocr.Recognizer
	pre    *imaging.Preprocessor
	reader *plate.Reader
	cfg    Config
	log    *logging.Logger
}

const ocrStage = "ocr"

// NewRegionReader builds a reader from cfg. The recognizer must not be nil.
func NewRegionReader(cfg Config, rec ocr.Recognizer, log *logging.Logger) (*RegionReader, error) {
	if rec == nil {
		return nil, perrors.NewEngineUnavailableError("none", stderrors.New("no recognizer configured"))
	}
	if problems := cfg.Problems(); len(problems) > 0 {
		return nil, perrors.NewInvalidConfigError(problems)
	}
	v, err := plate.NewValidator(cfg.Rules)
	if err != nil {
		return nil, err
	}
	var corrector *plate.Corrector
	if cfg.CorrectConfusions {
		corrector = plate.DefaultCorrector()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &RegionReader{
		rec:    rec,
		pre:    imaging.NewPreprocessor(cfg.Preprocess),
		reader: plate.NewReader(v, corrector),
		cfg:    cfg,
		log:    log,
	}, nil
}

// Recognizer returns the engine the reader calls.
func (r *RegionReader) Recognizer() ocr.Recognizer {
	return r.rec
}

// Read returns the best valid plate in img. Region on the returned
// candidate is img's bounds; callers reading a crop overwrite it.
//
// Failed recognizer calls are logged and joined into the returned error,
// which is informational: a found candidate may come with a non-nil error
// from other profiles.
func (r *RegionReader) Read(img image.Image) (Candidate, bool, error) {
	processed, err := r.pre.Process(img)
	if err != nil {
		r.log.Debug("preprocess failed, reading raw region", "error", err)
	}

	var (
		best Best
		errs []error
	)
	for _, p := range r.cfg.Profiles {
		tokens, err := r.recognize(processed, p)
		if err != nil {
			r.log.Warn("recognizer profile failed", "profile", p.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		r.offer(tokens, p, 0, &best)
	}

	if _, found := best.Get(); !found && r.cfg.RotationFallback && len(r.cfg.Profiles) > 0 {
		p := r.cfg.Profiles[0]
		for _, angle := range r.cfg.RotationAngles {
			rotated, err := rotate(processed, angle)
			if err != nil {
				r.log.Warn("rotation failed", "angle", angle, "error", err)
				errs = append(errs, err)
				continue
			}
			tokens, err := r.recognize(rotated, p)
			if err != nil {
				r.log.Warn("rotated recognition failed", "angle", angle, "error", err)
				errs = append(errs, err)
				continue
			}
			if r.offer(tokens, p, angle, &best) {
				r.log.Debug("rotation fallback hit", "angle", angle)
				break
			}
		}
	}

	cand, found := best.Get()
	if found {
		cand.Region = imaging.RegionFromRect(img.Bounds())
	}
	return cand, found, stderrors.Join(errs...)
}

// offer feeds every usable token to best and reports whether any valid
// reading was seen.
func (r *RegionReader) offer(tokens []ocr.Token, p ocr.Profile, angle float64, best *Best) bool {
	hit := false
	for _, t := range tokens {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		score := t.Score()
		if score < r.cfg.MinConfidence {
			continue
		}
		text, ok := r.reader.Read(t.Text)
		if !ok {
			r.log.Debug("token rejected", "raw", t.Text, "canonical", text, "profile", p.Name)
			continue
		}
		hit = true
		best.Offer(Candidate{
			Text:          text,
			Confidence:    score,
			OCRConfidence: score,
			Profile:       p.Name,
			Angle:         angle,
		})
	}
	return hit
}

func (r *RegionReader) recognize(img image.Image, p ocr.Profile) (tokens []ocr.Token, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			tokens, err = nil, perrors.NewPanicError(ocrStage, rec)
		}
	}()
	tokens, err = r.rec.Recognize(img, p)
	if err != nil {
		return nil, perrors.NewOCRFailedError(ocrStage, p.Name, err)
	}
	return tokens, nil
}

func rotate(img image.Image, angle float64) (out image.Image, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, perrors.NewPanicError("rotate", rec)
		}
	}()
	return imaging.Rotate(img, angle), nil
}
