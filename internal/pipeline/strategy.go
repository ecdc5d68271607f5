package pipeline

import (
	"image"

	"github.com/ironsheep/plate-reader/internal/detection"
	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/logging"
)

// Input is the image one detection runs on.
type Input struct {
	// Original is the image passed to Detect. Crops and results use its
	// coordinates.
	Original image.Image

	// Working is Original downscaled to Config.MaxImageWidth, used for
	// locating. Scale maps Working coordinates (relative to its origin)
	// back to Original.
	Working image.Image
	Scale   float64
}

func newInput(img image.Image, maxWidth int) Input {
	working, scale := imaging.FitWidth(img, maxWidth)
	return Input{Original: img, Working: working, Scale: scale}
}

// toOriginal maps a region of Working to Original and clamps it.
func (in Input) toOriginal(r imaging.Region) imaging.Region {
	wb := in.Working.Bounds()
	ob := in.Original.Bounds()
	r = imaging.Region{
		X1: r.X1 - wb.Min.X, Y1: r.Y1 - wb.Min.Y,
		X2: r.X2 - wb.Min.X, Y2: r.Y2 - wb.Min.Y,
	}.Scale(in.Scale)
	r = imaging.Region{
		X1: r.X1 + ob.Min.X, Y1: r.Y1 + ob.Min.Y,
		X2: r.X2 + ob.Min.X, Y2: r.Y2 + ob.Min.Y,
	}
	return r.Clamp(ob)
}

// Outcome is what one strategy run produced.
type Outcome struct {
	Best       Best
	Candidates int
	Errs       []error
}

// reached reports whether a plate at or above th has been found.
func (o *Outcome) reached(th float64) bool {
	c, ok := o.Best.Get()
	return ok && c.Confidence >= th
}

// Strategy is one stage of the fallback chain. Run must not panic past its
// own boundary for expected failures; the Detector still recovers panics
// so one broken stage never aborts the chain.
type Strategy interface {
	Name() string
	Run(in Input) Outcome
}

// readRegion crops r out of the original image and reads it, recording the
// attempt on out. It returns the candidate mapped to original coordinates.
func readRegion(reader *RegionReader, in Input, r imaging.Region, out *Outcome) (Candidate, bool) {
	out.Candidates++
	crop, err := imaging.CropRegion(in.Original, r)
	if err != nil {
		out.Errs = append(out.Errs, err)
		return Candidate{}, false
	}
	cand, found, err := reader.Read(crop)
	if err != nil {
		out.Errs = append(out.Errs, err)
	}
	if !found {
		return Candidate{}, false
	}
	cand.Region = r.Clamp(in.Original.Bounds())
	return cand, true
}

// learnedStrategy crops every box a learned detector proposes, lowering
// the threshold until at least one box appears.
type learnedStrategy struct {
	det    detection.LearnedDetector
	reader *RegionReader
	cfg    Config
	log    *logging.Logger
}

func (s *learnedStrategy) Name() string { return StageLearned }

func (s *learnedStrategy) Run(in Input) Outcome {
	var out Outcome
	for _, th := range s.cfg.DetectorThresholds {
		boxes, err := s.detect(in.Working, th)
		if err != nil {
			s.log.Warn("learned detector failed", "detector", s.det.Name(), "threshold", th, "error", err)
			out.Errs = append(out.Errs, err)
			continue
		}
		if len(boxes) == 0 {
			s.log.Debug("no boxes at threshold", "threshold", th)
			continue
		}

		for _, b := range boxes {
			region := in.toOriginal(b.Region)
			if region.Empty() {
				continue
			}
			cand, ok := readRegion(s.reader, in, region, &out)
			if !ok {
				continue
			}
			cand.DetectorConfidence = b.Confidence
			cand.Confidence = s.cfg.combine(b.Confidence, cand.OCRConfidence)
			out.Best.Offer(cand)
		}
		break
	}
	return out
}

func (s *learnedStrategy) detect(img image.Image, th float64) (boxes []detection.Box, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			boxes, err = nil, perrors.NewDetectorFailedError(th, perrors.NewPanicError(StageLearned, rec))
		}
	}()
	boxes, err = s.det.Detect(img, th)
	if err != nil {
		return nil, perrors.NewDetectorFailedError(th, err)
	}
	return boxes, nil
}

// locatorStrategy reads geometric plate candidates, largest first.
type locatorStrategy struct {
	loc    *detection.Locator
	reader *RegionReader
	cfg    Config
	log    *logging.Logger
}

func (s *locatorStrategy) Name() string { return StageLocator }

func (s *locatorStrategy) Run(in Input) Outcome {
	var out Outcome
	regions := s.loc.Candidates(in.Working)
	s.log.Debug("located candidates", "count", len(regions))
	for _, r := range regions {
		region := in.toOriginal(r)
		if region.Empty() {
			continue
		}
		if cand, ok := readRegion(s.reader, in, region, &out); ok {
			out.Best.Offer(cand)
		}
		if out.reached(s.cfg.EarlyExitConfidence) {
			s.log.Debug("early exit", "confidence", out.Best.Confidence())
			break
		}
	}
	return out
}

// tileStrategy scans overlapping tiles of the whole image.
type tileStrategy struct {
	reader *RegionReader
	cfg    Config
	log    *logging.Logger
}

func (s *tileStrategy) Name() string { return StageTiles }

func (s *tileStrategy) Run(in Input) Outcome {
	var out Outcome
	for _, t := range detection.Tiles(in.Working.Bounds(), s.cfg.Tiles) {
		region := in.toOriginal(t)
		if region.Empty() {
			continue
		}
		if cand, ok := readRegion(s.reader, in, region, &out); ok {
			out.Best.Offer(cand)
		}
		if out.reached(s.cfg.EarlyExitConfidence) {
			s.log.Debug("early exit", "confidence", out.Best.Confidence())
			break
		}
	}
	return out
}

// wholeStrategy reads the full original image once.
type wholeStrategy struct {
	reader *RegionReader
}

func (s *wholeStrategy) Name() string { return StageWhole }

func (s *wholeStrategy) Run(in Input) Outcome {
	var out Outcome
	region := imaging.RegionFromRect(in.Original.Bounds())
	if cand, ok := readRegion(s.reader, in, region, &out); ok {
		out.Best.Offer(cand)
	}
	return out
}

