package config

import (
	"context"
	"fmt"

	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/logging"
	"github.com/ironsheep/plate-reader/internal/ml"
	"github.com/ironsheep/plate-reader/internal/ocr"
	"github.com/ironsheep/plate-reader/internal/ocr/rekognition"
	"github.com/ironsheep/plate-reader/internal/ocr/tesseract"
	"github.com/ironsheep/plate-reader/internal/pipeline"
	"github.com/ironsheep/plate-reader/internal/session"
)

// Probe is a named liveness check reported by health endpoints. A failing
// Required probe means detections cannot succeed.
type Probe struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// Runtime is everything the binaries build once at startup.
type Runtime struct {
	Detector   *pipeline.Detector
	Recognizer ocr.Recognizer
	Learned    *ml.ModelAdapter
	Probes     []Probe

	closers []func() error
}

// Close releases engine handles.
func (r *Runtime) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildRuntime constructs the recognizer, the optional learned detector and
// the pipeline. A recognizer that fails to start is logged and left out, so
// the detector still answers (with nothing found) instead of the process
// refusing to start. A learned detector that fails its health check is
// still wired; the pipeline falls back past it per request.
func (c *Config) BuildRuntime(ctx context.Context, log *logging.Logger) (*Runtime, error) {
	rt := &Runtime{}

	rec, err := c.buildRecognizer(ctx, rt)
	if err != nil {
		log.Error("recognizer unavailable, detections will find nothing",
			"backend", c.OCRBackend, "error", perrors.NewEngineUnavailableError(c.OCRBackend, err))
	}
	rt.Recognizer = rec

	opts := []pipeline.Option{pipeline.WithLogger(log.With("component", "pipeline"))}
	if c.DetectorURL != "" {
		adapter, err := ml.NewModelAdapter(c.DetectorURL, c.DetectorTimeout)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to create learned detector: %w", err)
		}
		if err := adapter.CheckHealth(); err != nil {
			log.Warn("learned detector not healthy at startup", "url", c.DetectorURL, "error", err)
		}
		rt.Learned = adapter
		rt.Probes = append(rt.Probes, Probe{Name: "detector", Check: func(context.Context) error {
			return adapter.CheckHealth()
		}})
		opts = append(opts, pipeline.WithLearnedDetector(adapter))
	}

	d, err := pipeline.New(c.Pipeline(), rec, opts...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Detector = d
	log.Info("pipeline ready", "stages", d.Stages(), "locale", c.Rules().Name, "backend", c.OCRBackend)
	return rt, nil
}

// buildRecognizer returns a working engine or an error. The returned value
// is nil whenever the error is non-nil.
func (c *Config) buildRecognizer(ctx context.Context, rt *Runtime) (ocr.Recognizer, error) {
	switch c.OCRBackend {
	case BackendNone:
		rt.Probes = append(rt.Probes, Probe{Name: "ocr", Required: true, Check: func(context.Context) error {
			return fmt.Errorf("OCR backend disabled")
		}})
		return nil, fmt.Errorf("OCR backend disabled")

	case BackendRekognition:
		engine, err := rekognition.NewFromRegion(ctx, c.AWSRegion, c.DetectionTimeout)
		if err != nil {
			return nil, err
		}
		rt.Probes = append(rt.Probes, Probe{Name: "ocr", Required: true, Check: func(context.Context) error { return nil }})
		return engine, nil

	default:
		engine, err := tesseract.New(tesseract.Options{
			Language:       c.TesseractLanguage,
			TessdataPrefix: c.TessdataPrefix,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, engine.Close)
		rt.Probes = append(rt.Probes, Probe{Name: "ocr", Required: true, Check: func(context.Context) error {
			return engine.Available()
		}})
		if err := engine.Available(); err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// BuildSessionStore opens the configured session backend.
func (c *Config) BuildSessionStore(ctx context.Context) (session.Store, error) {
	if c.SessionBackend == SessionRedis {
		store, err := session.NewRedisStore(ctx, c.RedisURL, c.SessionTTL)
		if err != nil {
			return nil, perrors.NewSessionError("connect", err)
		}
		return store, nil
	}
	return session.NewMemoryStore(c.SessionTTL), nil
}
