package pipeline

import (
	"context"
	stderrors "errors"
	"image"
	"time"

	"github.com/ironsheep/plate-reader/internal/detection"
	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/logging"
	"github.com/ironsheep/plate-reader/internal/ocr"
)

// Attempt records one strategy run.
type Attempt struct {
	Strategy   string        `json:"strategy"`
	Candidates int           `json:"candidates"`
	Found      bool          `json:"found"`
	Best       Candidate     `json:"best"`
	Err        error         `json:"-"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Result is the outcome of one detection. Text is empty and Confidence 0
// exactly when Found is false.
type Result struct {
	Text       string         `json:"plate_text,omitempty"`
	Confidence float64        `json:"confidence"`
	Found      bool           `json:"found"`
	Source     string         `json:"source,omitempty"`
	Region     imaging.Region `json:"region"`
	Profile    string         `json:"profile,omitempty"`
	PlateColor string         `json:"plate_color,omitempty"`
	Attempts   []Attempt      `json:"attempts,omitempty"`
}

// Detector runs the strategy chain over whole images. It holds no
// per-call state; one Detector serves concurrent callers as long as its
// recognizer and learned detector do.
type Detector struct {
	cfg        Config
	reader     *RegionReader
	locator    *detection.Locator
	learned    detection.LearnedDetector
	strategies []Strategy
	log        *logging.Logger

	// colorOf names the plate background of a found region.
	colorOf func(img image.Image, r imaging.Region) string
}

// Option customizes a Detector.
type Option func(*Detector)

// WithLearnedDetector enables the learned stage. A nil detector leaves it
// disabled.
func WithLearnedDetector(det detection.LearnedDetector) Option {
	return func(d *Detector) {
		d.learned = det
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// New builds a Detector from cfg. A nil recognizer is allowed: the
// Detector then finds nothing for every image, which is how a deployment
// without a working OCR engine degrades.
func New(cfg Config, rec ocr.Recognizer, opts ...Option) (*Detector, error) {
	if problems := cfg.Problems(); len(problems) > 0 {
		return nil, perrors.NewInvalidConfigError(problems)
	}

	d := &Detector{
		cfg:     cfg,
		locator: detection.NewLocator(cfg.Locator),
		log:     logging.Discard(),
		colorOf: imaging.ClassifyPlateColor,
	}
	for _, opt := range opts {
		opt(d)
	}

	if rec == nil {
		d.log.Warn("detector built without a recognizer", "error",
			perrors.NewEngineUnavailableError("none", stderrors.New("no recognizer configured")))
		return d, nil
	}

	reader, err := NewRegionReader(cfg, rec, d.log.With("stage", ocrStage))
	if err != nil {
		return nil, err
	}
	d.reader = reader

	for _, name := range cfg.Stages {
		log := d.log.With("stage", name)
		switch name {
		case StageLearned:
			if d.learned == nil {
				continue
			}
			d.strategies = append(d.strategies, &learnedStrategy{det: d.learned, reader: reader, cfg: cfg, log: log})
		case StageLocator:
			d.strategies = append(d.strategies, &locatorStrategy{loc: d.locator, reader: reader, cfg: cfg, log: log})
		case StageTiles:
			d.strategies = append(d.strategies, &tileStrategy{reader: reader, cfg: cfg, log: log})
		case StageWhole:
			d.strategies = append(d.strategies, &wholeStrategy{reader: reader})
		}
	}
	return d, nil
}

// Config returns the configuration the Detector was built with.
func (d *Detector) Config() Config {
	return d.cfg
}

// Stages lists the strategies that will run, in order.
func (d *Detector) Stages() []string {
	names := make([]string, len(d.strategies))
	for i, s := range d.strategies {
		names[i] = s.Name()
	}
	return names
}

// Ready reports whether the Detector has a recognizer to read with.
func (d *Detector) Ready() bool {
	return d.reader != nil
}

// Detect runs the strategy chain over img and returns the first stage's
// best plate. It never returns an error and never panics: stage failures
// are logged and recorded on Result.Attempts. A panic outside the stages
// (resizing, colour classification) yields a not-found Result that keeps
// the attempts recorded so far.
func (d *Detector) Detect(img image.Image) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("detection panicked", "error", perrors.NewPanicError("detect", rec))
			res = Result{Attempts: res.Attempts}
		}
	}()

	if d.reader == nil {
		d.log.Debug("no recognizer, skipping detection")
		return Result{}
	}
	if img == nil {
		d.log.Warn("nil image")
		return Result{}
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		d.log.Warn("empty image", "error", perrors.NewEmptyImageError(b.Dx(), b.Dy()))
		return Result{}
	}

	start := time.Now()
	in := newInput(img, d.cfg.MaxImageWidth)

	for _, s := range d.strategies {
		attempt := d.run(s, in)
		res.Attempts = append(res.Attempts, attempt)
		if !attempt.Found {
			continue
		}
		c := attempt.Best
		res.Text = c.Text
		res.Confidence = c.Confidence
		res.Found = true
		res.Source = s.Name()
		res.Region = c.Region
		res.Profile = c.Profile
		res.PlateColor = d.colorOf(img, c.Region)
		break
	}

	d.log.Info("detection finished",
		"found", res.Found,
		"plate", res.Text,
		"confidence", res.Confidence,
		"source", res.Source,
		"elapsed", time.Since(start))
	return res
}

func (d *Detector) run(s Strategy, in Input) (a Attempt) {
	start := time.Now()
	a.Strategy = s.Name()
	defer func() {
		if rec := recover(); rec != nil {
			err := perrors.NewPanicError(s.Name(), rec)
			d.log.Error("strategy panicked", "stage", s.Name(), "error", err)
			a = Attempt{Strategy: s.Name(), Err: err}
		}
		a.Elapsed = time.Since(start)
	}()

	out := s.Run(in)
	a.Candidates = out.Candidates
	a.Best, a.Found = out.Best.Get()
	a.Err = stderrors.Join(out.Errs...)
	if a.Err != nil {
		d.log.Debug("strategy recorded errors", "stage", s.Name(), "error", a.Err)
	}
	return a
}

// ReadRegion runs the single-region strategy on img. It reports false when
// the Detector has no recognizer.
func (d *Detector) ReadRegion(img image.Image) (Candidate, bool, error) {
	if d.reader == nil {
		return Candidate{}, false, perrors.NewEngineUnavailableError("none", stderrors.New("no recognizer configured"))
	}
	return d.reader.Read(img)
}

// Locate returns the geometric plate candidates of img, largest first, in
// img's coordinates.
func (d *Detector) Locate(img image.Image) []imaging.Region {
	in := newInput(img, d.cfg.MaxImageWidth)
	raw := d.locator.Candidates(in.Working)
	regions := make([]imaging.Region, 0, len(raw))
	for _, r := range raw {
		if m := in.toOriginal(r); !m.Empty() {
			regions = append(regions, m)
		}
	}
	return regions
}

// PlateDetector is anything that detects plates the way Detector does.
type PlateDetector interface {
	Detect(img image.Image) Result
}

// DetectContext runs d.Detect and gives up when ctx ends first, returning
// an empty Result and a TIMEOUT error. The abandoned detection keeps
// running to completion in the background.
func DetectContext(ctx context.Context, d PlateDetector, img image.Image) (Result, error) {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- d.Detect(img)
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return Result{}, perrors.NewTimeoutError(time.Since(start), ctx.Err())
	}
}
