// Package ml adapts an external learned plate detector served over HTTP.
//
// The inference service receives the image as a multipart upload and
// answers with bounding boxes:
//
//	POST <url>   file=<png>, threshold=<float>
//	200 {"detections":[{"x":..,"y":..,"width":..,"height":..,"class":"plate","confidence":..}]}
//
// and exposes GET /health for liveness.
package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/ironsheep/plate-reader/internal/detection"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/plate"
)

// DefaultTimeout bounds a single inference request.
const DefaultTimeout = 10 * time.Second

// BoundingBox is one detection in the inference service's response.
type BoundingBox struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Class  string  `json:"class"`
	Conf   float64 `json:"confidence"`
}

// ModelAdapter implements detection.LearnedDetector against a remote
// inference service.
type ModelAdapter struct {
	inferenceURL string
	healthURL    string
	client       *http.Client
}

// NewModelAdapter creates an adapter posting to inferenceURL. A timeout of
// zero uses DefaultTimeout.
func NewModelAdapter(inferenceURL string, timeout time.Duration) (*ModelAdapter, error) {
	u, err := url.Parse(inferenceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid detector URL %q: %w", inferenceURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid detector URL %q: scheme must be http or https", inferenceURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	health := *u
	health.Path = "/health"
	health.RawQuery = ""

	return &ModelAdapter{
		inferenceURL: u.String(),
		healthURL:    health.String(),
		client:       &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the detector in logs and results.
func (m *ModelAdapter) Name() string {
	return "remote-model"
}

// Detect sends img to the inference service and returns the plate boxes
// scoring at or above threshold, clamped to img, highest confidence first.
// Confidences reported on a 0-100 scale are normalized to [0,1].
func (m *ModelAdapter) Detect(img image.Image, threshold float64) ([]detection.Box, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.WriteField("threshold", strconv.FormatFloat(threshold, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write threshold field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result struct {
		Detections []BoundingBox `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toBoxes(result.Detections, img.Bounds(), threshold), nil
}

func toBoxes(raw []BoundingBox, bounds image.Rectangle, threshold float64) []detection.Box {
	boxes := make([]detection.Box, 0, len(raw))
	for _, d := range raw {
		conf := plate.NormalizeConfidence(d.Conf)
		if conf < threshold || d.Width <= 0 || d.Height <= 0 {
			continue
		}
		boxes = append(boxes, detection.Box{
			Region: imaging.Region{
				X1: bounds.Min.X + d.X,
				Y1: bounds.Min.Y + d.Y,
				X2: bounds.Min.X + d.X + d.Width,
				Y2: bounds.Min.Y + d.Y + d.Height,
			},
			Confidence: conf,
			Class:      d.Class,
		})
	}
	boxes = detection.ClampBoxes(boxes, bounds)
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Confidence > boxes[j].Confidence
	})
	return boxes
}

// CheckHealth reports whether the inference service answers its health
// endpoint with 200.
func (m *ModelAdapter) CheckHealth() error {
	resp, err := m.client.Get(m.healthURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
