// Package tesseract implements ocr.Recognizer on top of the Tesseract
// engine through gosseract/v2.
//
// One Engine owns one gosseract client for the life of the process. The
// client is not safe for concurrent use, so Recognize holds a mutex for
// the duration of the inference call only; image encoding happens outside
// the lock.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng libtesseract-dev
//   - macOS: brew install tesseract
//
// A tessdata directory placed next to the binary is picked up
// automatically; otherwise Options.TessdataPrefix or the system default is
// used.
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/plate-reader/internal/ocr"
)

// Options configures an Engine.
type Options struct {
	// Language is the Tesseract language code. Default "eng".
	Language string

	// TessdataPrefix overrides where traineddata files are loaded from.
	TessdataPrefix string

	// Variables are extra Tesseract variables set on the client.
	Variables map[string]string
}

// defaultVariables turn off dictionary correction: plates are not words.
var defaultVariables = map[string]string{
	"load_system_dawg": "false",
	"load_freq_dawg":   "false",
}

// Engine is a thread-safe Tesseract-backed ocr.Recognizer.
type Engine struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
	prefix   string
}

// New creates an Engine. The Tesseract library is only initialized on the
// first recognition; call Available to probe it at startup.
func New(opts Options) (*Engine, error) {
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	prefix := opts.TessdataPrefix
	if prefix == "" {
		prefix = localTessdata()
	}
	if prefix != "" {
		if err := client.SetTessdataPrefix(prefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}

	vars := make(map[string]string, len(defaultVariables)+len(opts.Variables))
	for k, v := range defaultVariables {
		vars[k] = v
	}
	for k, v := range opts.Variables {
		vars[k] = v
	}
	for k, v := range vars {
		if err := client.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set variable %s: %w", k, err)
		}
	}

	return &Engine{client: client, language: lang, prefix: prefix}, nil
}

// localTessdata returns the tessdata directory next to the executable, if
// one exists.
func localTessdata() string {
	exePath, err := os.Executable()
	if err != nil {
		return ""
	}
	if real, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = real
	}
	dir := filepath.Join(filepath.Dir(exePath), "tessdata")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

// Name implements ocr.Recognizer.
func (e *Engine) Name() string {
	return "tesseract"
}

// Recognize implements ocr.Recognizer.
//
// The profile's segmentation maps to a Tesseract page segmentation mode and
// its whitelist to tessedit_char_whitelist. Engine mode is an init-time
// Tesseract parameter that gosseract applies after initialization, so it
// has no effect here; the LSTM model is used whenever the installed
// traineddata provides it.
//
// Words are read at RIL_WORD level. Confidences are reported on Tesseract's
// 0-100 scale.
func (e *Engine) Recognize(img image.Image, profile ocr.Profile) ([]ocr.Token, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetPageSegMode(pageSegMode(profile.Segmentation)); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := e.client.SetWhitelist(profile.Whitelist); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	tokens := make([]ocr.Token, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		tokens = append(tokens, ocr.Token{
			Text:       box.Word,
			Bounds:     ocr.BoundsFromRect(box.Box),
			Confidence: box.Confidence,
			Scale:      ocr.ScalePercent,
		})
	}
	return tokens, nil
}

func pageSegMode(s ocr.Segmentation) gosseract.PageSegMode {
	switch s {
	case ocr.SegmentSingleWord:
		return gosseract.PSM_SINGLE_WORD
	case ocr.SegmentSingleLine:
		return gosseract.PSM_SINGLE_LINE
	case ocr.SegmentSparseText:
		return gosseract.PSM_SPARSE_TEXT
	default:
		return gosseract.PSM_SINGLE_BLOCK
	}
}

// Available runs a recognition on a small blank image to force library
// and language data initialization. A nil error means the engine works.
func (e *Engine) Available() error {
	probe := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range probe.Pix {
		probe.Pix[i] = 255
	}
	if _, err := e.Recognize(probe, ocr.DefaultProfiles()[0]); err != nil {
		return fmt.Errorf("tesseract unavailable: %w", err)
	}
	return nil
}

// Info describes the engine for health and tool output.
type Info struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	Language     string `json:"language"`
	TessdataPath string `json:"tessdata_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Info probes the engine and reports its state.
func (e *Engine) Info() Info {
	info := Info{Language: e.language, TessdataPath: e.prefix}
	if err := e.Available(); err != nil {
		info.Error = err.Error()
		return info
	}
	e.mu.Lock()
	info.Version = e.client.Version()
	e.mu.Unlock()
	info.Available = true
	return info
}

// Close releases the native client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
