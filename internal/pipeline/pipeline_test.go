package pipeline

import (
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/plate-reader/internal/detection"
	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/ocr"
)

// scriptedRecognizer answers every call through fn and counts calls.
type scriptedRecognizer struct {
	mu    sync.Mutex
	calls int
	sizes []image.Point
	fn    func(call int, img image.Image, p ocr.Profile) ([]ocr.Token, error)
}

func (r *scriptedRecognizer) Name() string { return "scripted" }

func (r *scriptedRecognizer) Recognize(img image.Image, p ocr.Profile) ([]ocr.Token, error) {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.sizes = append(r.sizes, img.Bounds().Size())
	r.mu.Unlock()
	if r.fn == nil {
		return nil, nil
	}
	return r.fn(call, img, p)
}

func (r *scriptedRecognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *scriptedRecognizer) MaxWidth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := 0
	for _, s := range r.sizes {
		if s.X > w {
			w = s.X
		}
	}
	return w
}

func always(text string, conf float64) *scriptedRecognizer {
	return &scriptedRecognizer{fn: func(int, image.Image, ocr.Profile) ([]ocr.Token, error) {
		return []ocr.Token{{Text: text, Confidence: conf, Scale: ocr.ScaleFraction}}, nil
	}}
}

// scriptedDetector proposes boxes per threshold.
type scriptedDetector struct {
	mu         sync.Mutex
	thresholds []float64
	fn         func(th float64) ([]detection.Box, error)
}

func (d *scriptedDetector) Name() string { return "scripted-detector" }

func (d *scriptedDetector) Detect(img image.Image, th float64) ([]detection.Box, error) {
	d.mu.Lock()
	d.thresholds = append(d.thresholds, th)
	d.mu.Unlock()
	return d.fn(th)
}

func blank(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func regionContains(outer imaging.Region, inner image.Rectangle) bool {
	return outer.X1 <= inner.Min.X && outer.Y1 <= inner.Min.Y &&
		outer.X2 >= inner.Max.X && outer.Y2 >= inner.Max.Y
}

func TestBest_Monotonic(t *testing.T) {
	var b Best
	_, ok := b.Get()
	assert.False(t, ok)
	assert.Zero(t, b.Confidence())

	seq := []float64{0.3, 0.7, 0.5, 0.7, 0.9, 0.2, 0.9}
	prev := 0.0
	for i, c := range seq {
		b.Offer(Candidate{Text: string(rune('A' + i)), Confidence: c})
		assert.GreaterOrEqual(t, b.Confidence(), prev, "best must never decrease")
		prev = b.Confidence()
	}

	got, ok := b.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, "E", got.Text, "ties keep the first candidate")
}

func TestBest_TieKeepsFirst(t *testing.T) {
	var b Best
	assert.True(t, b.Offer(Candidate{Text: "FIRST", Confidence: 0.7}))
	assert.False(t, b.Offer(Candidate{Text: "SECOND", Confidence: 0.7}))
	got, _ := b.Get()
	assert.Equal(t, "FIRST", got.Text)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Problems())
	assert.Equal(t, DefaultStages, cfg.Stages)
	assert.Len(t, cfg.Profiles, 4)
	assert.InDelta(t, 0.6*0.9+0.4*0.8, cfg.combine(0.9, 0.8), 1e-9)
}

func TestConfig_Problems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiles = nil
	cfg.MinConfidence = 1.5
	cfg.DetectorThresholds = []float64{0.5, -1}
	cfg.DetectorWeight, cfg.OCRWeight = 0, 0
	cfg.Stages = []string{"locator", "locator", "magic"}
	cfg.Rules.Patterns = []string{"("}

	problems := cfg.Problems()
	assert.Len(t, problems, 7)

	_, err := New(cfg, always("AB1234", 0.9))
	require.Error(t, err)
	assert.True(t, perrors.HasCode(err, perrors.ErrorInvalidConfig))
}

func TestRegionReader_BestAcrossProfiles(t *testing.T) {
	rec := &scriptedRecognizer{fn: func(call int, _ image.Image, p ocr.Profile) ([]ocr.Token, error) {
		switch p.Name {
		case "single_word":
			return []ocr.Token{{Text: "AB 123", Confidence: 60, Scale: ocr.ScalePercent}}, nil
		case "single_line":
			return []ocr.Token{{Text: "ab-1234", Confidence: 0.8, Scale: ocr.ScaleFraction}}, nil
		case "sparse_lstm":
			return nil, stderrors.New("engine hiccup")
		default:
			panic("engine crashed")
		}
	}}
	r, err := NewRegionReader(DefaultConfig(), rec, nil)
	require.NoError(t, err)

	img := blank(120, 40, color.White)
	cand, found, err := r.Read(img)
	require.True(t, found)
	assert.Equal(t, "AB1234", cand.Text)
	assert.InDelta(t, 0.8, cand.Confidence, 1e-9)
	assert.Equal(t, "single_line", cand.Profile)
	assert.Equal(t, imaging.Region{X1: 0, Y1: 0, X2: 120, Y2: 40}, cand.Region)
	assert.Equal(t, 4, rec.Calls(), "no rotation retries once a profile succeeded")

	require.Error(t, err)
	assert.Contains(t, err.Error(), string(perrors.ErrorOCRFailed))
	assert.Contains(t, err.Error(), string(perrors.ErrorPanic))
}

func TestRegionReader_SkipsWeakAndEmptyTokens(t *testing.T) {
	rec := &scriptedRecognizer{fn: func(int, image.Image, ocr.Profile) ([]ocr.Token, error) {
		return []ocr.Token{
			{Text: "   ", Confidence: 0.99, Scale: ocr.ScaleFraction},
			{Text: "AB1234", Confidence: 0.4, Scale: ocr.ScaleFraction},
			{Text: "CD5678", Confidence: -1, Scale: ocr.ScalePercent},
			{Text: "X", Confidence: 0.95, Scale: ocr.ScaleFraction},
		}, nil
	}}
	cfg := DefaultConfig()
	cfg.RotationFallback = false
	r, err := NewRegionReader(cfg, rec, nil)
	require.NoError(t, err)

	_, found, err := r.Read(blank(60, 20, color.White))
	assert.False(t, found)
	assert.NoError(t, err)
	assert.Equal(t, 4, rec.Calls())
}

func TestRegionReader_CorrectsLeadingDigit(t *testing.T) {
	r, err := NewRegionReader(DefaultConfig(), always("071234", 0.9), nil)
	require.NoError(t, err)

	cand, found, _ := r.Read(blank(60, 20, color.White))
	require.True(t, found)
	assert.Equal(t, "O71234", cand.Text)
}

func TestRegionReader_NoCorrection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CorrectConfusions = false
	r, err := NewRegionReader(cfg, always("071234", 0.9), nil)
	require.NoError(t, err)

	cand, found, _ := r.Read(blank(60, 20, color.White))
	require.True(t, found)
	assert.Equal(t, "071234", cand.Text)
}

func TestRegionReader_RotationFallback(t *testing.T) {
	var profiles []string
	var mu sync.Mutex
	rec := &scriptedRecognizer{fn: func(call int, _ image.Image, p ocr.Profile) ([]ocr.Token, error) {
		mu.Lock()
		profiles = append(profiles, p.Name)
		mu.Unlock()
		// Calls 1-4 are the upright profiles, 5 is -10 degrees, 6 is -5.
		if call == 6 {
			return []ocr.Token{{Text: "B123456", Confidence: 0.7, Scale: ocr.ScaleFraction}}, nil
		}
		return nil, nil
	}}
	r, err := NewRegionReader(DefaultConfig(), rec, nil)
	require.NoError(t, err)

	cand, found, err := r.Read(blank(200, 60, color.White))
	require.True(t, found)
	assert.NoError(t, err)
	assert.Equal(t, "B123456", cand.Text)
	assert.InDelta(t, -5, cand.Angle, 1e-9)
	assert.Equal(t, 6, rec.Calls(), "rotation stops at the first hit")
	assert.Equal(t, []string{"single_word", "single_word"}, profiles[4:], "rotations use the first profile only")
}

func TestRegionReader_RotationDisabled(t *testing.T) {
	rec := &scriptedRecognizer{}
	cfg := DefaultConfig()
	cfg.RotationFallback = false
	r, err := NewRegionReader(cfg, rec, nil)
	require.NoError(t, err)

	_, found, _ := r.Read(blank(100, 30, color.White))
	assert.False(t, found)
	assert.Equal(t, 4, rec.Calls())
}

func TestRegionReader_NilRecognizer(t *testing.T) {
	_, err := NewRegionReader(DefaultConfig(), nil, nil)
	require.Error(t, err)
	assert.True(t, perrors.HasCode(err, perrors.ErrorEngineUnavailable))
}

func TestDetector_NoRecognizer(t *testing.T) {
	d, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.False(t, d.Ready())

	res := d.Detect(blank(100, 50, color.White))
	assert.False(t, res.Found)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Confidence)

	_, _, err = d.ReadRegion(blank(10, 10, color.White))
	assert.True(t, perrors.HasCode(err, perrors.ErrorEngineUnavailable))
}

func TestDetector_Stages(t *testing.T) {
	d, err := New(DefaultConfig(), always("AB1234", 0.9))
	require.NoError(t, err)
	assert.Equal(t, []string{StageLocator, StageTiles, StageWhole}, d.Stages(), "learned stage needs a detector")

	det := &scriptedDetector{fn: func(float64) ([]detection.Box, error) { return nil, nil }}
	d, err = New(DefaultConfig(), always("AB1234", 0.9), WithLearnedDetector(det))
	require.NoError(t, err)
	assert.Equal(t, DefaultStages, d.Stages())
}

func TestDetector_BlankImageFindsNothing(t *testing.T) {
	rec := &scriptedRecognizer{}
	d, err := New(DefaultConfig(), rec)
	require.NoError(t, err)

	res := d.Detect(blank(300, 150, color.White))
	assert.False(t, res.Found)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Confidence)

	require.Len(t, res.Attempts, 3)
	assert.Equal(t, StageLocator, res.Attempts[0].Strategy)
	assert.Zero(t, res.Attempts[0].Candidates)
	assert.Equal(t, 15, res.Attempts[1].Candidates, "300x150 splits into 3x5 tiles")
	assert.Equal(t, 1, res.Attempts[2].Candidates)
}

func TestDetector_EmptyImage(t *testing.T) {
	d, err := New(DefaultConfig(), always("AB1234", 0.9))
	require.NoError(t, err)

	assert.False(t, d.Detect(image.NewGray(image.Rectangle{})).Found)
	assert.False(t, d.Detect(nil).Found)
}

func TestDetector_LearnedLowersThreshold(t *testing.T) {
	box := imaging.Region{X1: 50, Y1: 40, X2: 250, Y2: 90}
	det := &scriptedDetector{fn: func(th float64) ([]detection.Box, error) {
		if th > 0.4 {
			return nil, nil
		}
		return []detection.Box{{Region: box, Confidence: 0.9}}, nil
	}}
	d, err := New(DefaultConfig(), always("AB1234", 0.8), WithLearnedDetector(det))
	require.NoError(t, err)

	res := d.Detect(blank(400, 200, color.White))
	require.True(t, res.Found)
	assert.Equal(t, "AB1234", res.Text)
	assert.Equal(t, StageLearned, res.Source)
	assert.InDelta(t, 0.6*0.9+0.4*0.8, res.Confidence, 1e-9)
	assert.Equal(t, box, res.Region)
	assert.Equal(t, []float64{0.5, 0.35}, det.thresholds, "stops lowering once a box appears")
	assert.Len(t, res.Attempts, 1)
}

func TestDetector_LearnedFailureFallsThrough(t *testing.T) {
	for name, fn := range map[string]func(float64) ([]detection.Box, error){
		"error": func(float64) ([]detection.Box, error) { return nil, stderrors.New("model not loaded") },
		"panic": func(float64) ([]detection.Box, error) { panic("bad tensor") },
	} {
		t.Run(name, func(t *testing.T) {
			det := &scriptedDetector{fn: fn}
			d, err := New(DefaultConfig(), always("AB1234", 0.95), WithLearnedDetector(det))
			require.NoError(t, err)

			res := d.Detect(blank(300, 150, color.White))
			require.True(t, res.Found)
			assert.Equal(t, StageTiles, res.Source, "blank image has no geometric candidates")

			require.Len(t, res.Attempts, 3)
			assert.False(t, res.Attempts[0].Found)
			assert.Len(t, det.thresholds, 3, "every threshold is tried")
			assert.Contains(t, res.Attempts[0].Err.Error(), string(perrors.ErrorDetectorFailed))
			assert.Equal(t, 1, res.Attempts[2].Candidates, "tile scan exits early on a confident hit")
		})
	}
}

func TestDetector_LocatorOnDownscaledImage(t *testing.T) {
	img := blank(2400, 600, color.White)
	plate := image.Rect(400, 200, 1000, 300)
	fillRect(img, plate, color.Black)

	rec := always("AB1234", 0.95)
	d, err := New(DefaultConfig(), rec)
	require.NoError(t, err)

	res := d.Detect(img)
	require.True(t, res.Found)
	assert.Equal(t, StageLocator, res.Source)
	assert.True(t, regionContains(res.Region, plate), "region %+v should cover %v in original coordinates", res.Region, plate)
	assert.GreaterOrEqual(t, rec.MaxWidth(), plate.Dx(), "crops come from the full-resolution image")
	assert.Equal(t, "black", res.PlateColor)
}

func TestDetector_Locate(t *testing.T) {
	img := blank(600, 400, color.White)
	plate := image.Rect(100, 100, 300, 150)
	fillRect(img, plate, color.Black)

	d, err := New(DefaultConfig(), nil)
	require.NoError(t, err)

	regions := d.Locate(img)
	require.Len(t, regions, 1)
	assert.True(t, regionContains(regions[0], plate))
}

type panickingStrategy struct{}

func (panickingStrategy) Name() string      { return "broken" }
func (panickingStrategy) Run(Input) Outcome { panic("boom") }

func TestDetector_StrategyPanicDoesNotAbort(t *testing.T) {
	d, err := New(DefaultConfig(), always("AB1234", 0.9))
	require.NoError(t, err)
	d.strategies = append([]Strategy{panickingStrategy{}}, d.strategies...)

	res := d.Detect(blank(100, 50, color.White))
	require.True(t, res.Found)
	assert.True(t, perrors.HasCode(res.Attempts[0].Err, perrors.ErrorPanic))
	assert.NotEqual(t, "broken", res.Source)
}

func TestDetector_PanicOutsideStrategyIsContained(t *testing.T) {
	d, err := New(DefaultConfig(), always("AB1234", 0.9))
	require.NoError(t, err)
	d.colorOf = func(image.Image, imaging.Region) string { panic("colour lookup failed") }

	var res Result
	require.NotPanics(t, func() { res = d.Detect(blank(100, 50, color.White)) })
	assert.False(t, res.Found)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Confidence)
	assert.NotEmpty(t, res.Attempts)
}

func TestDetectContext(t *testing.T) {
	d, err := New(DefaultConfig(), always("AB1234", 0.9))
	require.NoError(t, err)

	res, err := DetectContext(context.Background(), d, blank(100, 50, color.White))
	require.NoError(t, err)
	assert.True(t, res.Found)
}

func TestDetectContext_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	rec := &scriptedRecognizer{fn: func(int, image.Image, ocr.Profile) ([]ocr.Token, error) {
		<-release
		return nil, nil
	}}
	d, err := New(DefaultConfig(), rec)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := DetectContext(ctx, d, blank(100, 50, color.White))
	require.Error(t, err)
	assert.True(t, perrors.HasCode(err, perrors.ErrorTimeout))
	assert.False(t, res.Found)
}
