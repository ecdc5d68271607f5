package server

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/ocr"
	"github.com/ironsheep/plate-reader/internal/pipeline"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	t.Cleanup(func() { os.Remove(tmpFile.Name()) })
	return tmpFile.Name()
}

// fixedRecognizer reads the same token from every image.
type fixedRecognizer struct {
	text string
	conf float64
	err  error
}

func (r fixedRecognizer) Name() string { return "fixed" }

func (r fixedRecognizer) Recognize(image.Image, ocr.Profile) ([]ocr.Token, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []ocr.Token{{Text: r.text, Confidence: r.conf, Scale: ocr.ScaleFraction}}, nil
}

func newTestServer(t *testing.T, rec ocr.Recognizer) *Server {
	t.Helper()
	det, err := pipeline.New(pipeline.DefaultConfig(), rec)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return New(det)
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeContent unpacks the JSON text of a successful tool response into v.
func decodeContent(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result should be a map, got %T", resp.Result)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("decode content %q: %v", text, err)
	}
}

func intPtr(v int) *int { return &v }

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	decodeContent(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageLoadWideCameraFrame(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 1600, 900, color.RGBA{90, 90, 90, 255})

	var info imaging.ImageInfo
	decodeContent(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if !info.Downscaled {
		t.Errorf("a %dpx frame should be located on a downscaled copy", info.Width)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.Size
	decodeContent(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("size: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_ImageLoadMissingFile(t *testing.T) {
	s := New(nil)
	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/plate.png"})

	if resp.Error == nil {
		t.Fatal("Expected error for missing file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_PlateDetect(t *testing.T) {
	s := newTestServer(t, fixedRecognizer{text: "abc 1234", conf: 0.75})
	imgPath := createTestImageFile(t, 300, 150, color.RGBA{128, 128, 128, 255})

	var res DetectResult
	decodeContent(t, callTool(t, s, "plate_detect", map[string]interface{}{"path": imgPath}), &res)

	if !res.Found {
		t.Fatal("expected a plate")
	}
	if res.Plate != "ABC1234" {
		t.Errorf("plate: got %s, want ABC1234", res.Plate)
	}
	if res.ConfidencePercent != 75 {
		t.Errorf("confidence_percent: got %d, want 75", res.ConfidencePercent)
	}
	if res.Region == nil || res.Region.Empty() {
		t.Errorf("region: got %+v", res.Region)
	}
	if res.Source == "" {
		t.Error("source should name the stage that found the plate")
	}
	if len(res.Attempts) != 0 {
		t.Errorf("attempts should be omitted by default, got %d", len(res.Attempts))
	}
}

func TestHandleToolsCall_PlateDetectAttempts(t *testing.T) {
	s := newTestServer(t, fixedRecognizer{text: "abc 1234", conf: 0.75})
	imgPath := createTestImageFile(t, 300, 150, color.RGBA{128, 128, 128, 255})

	var res DetectResult
	args := map[string]interface{}{"path": imgPath, "include_attempts": true}
	decodeContent(t, callTool(t, s, "plate_detect", args), &res)

	if len(res.Attempts) == 0 {
		t.Fatal("expected attempts")
	}
	last := res.Attempts[len(res.Attempts)-1]
	if last.Strategy != res.Source {
		t.Errorf("last attempt %s should be the source %s", last.Strategy, res.Source)
	}
	if !last.Found || last.Plate != "ABC1234" {
		t.Errorf("last attempt: %+v", last)
	}
}

func TestHandleToolsCall_PlateDetectNotFound(t *testing.T) {
	s := newTestServer(t, fixedRecognizer{err: errors.New("engine crashed")})
	imgPath := createTestImageFile(t, 200, 100, color.RGBA{128, 128, 128, 255})

	var res DetectResult
	args := map[string]interface{}{"path": imgPath, "include_attempts": true}
	decodeContent(t, callTool(t, s, "plate_detect", args), &res)

	if res.Found || res.Plate != "" || res.Confidence != 0 {
		t.Errorf("expected no plate, got %+v", res)
	}
	if res.Region != nil {
		t.Errorf("region should be omitted, got %+v", res.Region)
	}
	sawError := false
	for _, a := range res.Attempts {
		if strings.Contains(a.Error, "OCR_FAILED") {
			sawError = true
		}
	}
	if !sawError {
		t.Error("expected recognizer failures on the attempts")
	}
}

func TestHandleToolsCall_PlateDetectNoEngine(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 200, 100, color.RGBA{128, 128, 128, 255})

	resp := callTool(t, s, "plate_detect", map[string]interface{}{"path": imgPath})

	if resp.Error == nil {
		t.Fatal("Expected error without an OCR engine")
	}
	data, _ := resp.Error.Data.(string)
	if !strings.Contains(data, "ENGINE_UNAVAILABLE") {
		t.Errorf("error data: got %q", data)
	}
}

func TestHandleToolsCall_PlateOCRRegion(t *testing.T) {
	s := newTestServer(t, fixedRecognizer{text: "XY 99", conf: 0.8})
	imgPath := createTestImageFile(t, 200, 100, color.RGBA{200, 200, 200, 255})

	var res RegionReadResult
	args := regionArgs{Path: imgPath, X1: intPtr(10), Y1: intPtr(20), X2: intPtr(110), Y2: intPtr(60)}
	decodeContent(t, callTool(t, s, "plate_ocr_region", args), &res)

	if !res.Found || res.Plate != "XY99" {
		t.Errorf("result: %+v", res)
	}
	want := imaging.Region{X1: 10, Y1: 20, X2: 110, Y2: 60}
	if res.Region != want {
		t.Errorf("region: got %+v, want %+v", res.Region, want)
	}
	if res.Profile == "" {
		t.Error("profile should be reported")
	}
}

func TestHandleToolsCall_PlateOCRRegionErrors(t *testing.T) {
	s := newTestServer(t, fixedRecognizer{text: "XY99", conf: 0.8})
	imgPath := createTestImageFile(t, 200, 100, color.RGBA{200, 200, 200, 255})

	tests := []struct {
		name string
		args regionArgs
	}{
		{"partial coordinates", regionArgs{Path: imgPath, X1: intPtr(0), Y1: intPtr(0)}},
		{"outside image", regionArgs{Path: imgPath, X1: intPtr(300), Y1: intPtr(300), X2: intPtr(400), Y2: intPtr(400)}},
		{"inverted", regionArgs{Path: imgPath, X1: intPtr(50), Y1: intPtr(50), X2: intPtr(10), Y2: intPtr(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "plate_ocr_region", tt.args)
			if resp.Error == nil {
				t.Fatal("Expected error")
			}
		})
	}
}

func TestHandleToolsCall_PlateOCRRegionNoEngine(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 200, 100, color.RGBA{200, 200, 200, 255})

	resp := callTool(t, s, "plate_ocr_region", map[string]interface{}{"path": imgPath})
	if resp.Error == nil {
		t.Fatal("Expected error without an OCR engine")
	}
}

func TestHandleToolsCall_PlateLocateCandidates(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 320, 240, color.RGBA{255, 255, 255, 255})

	var res LocateResult
	args := map[string]interface{}{"path": imgPath, "annotate": true, "color": "#FF0000"}
	decodeContent(t, callTool(t, s, "plate_locate_candidates", args), &res)

	if res.Count != len(res.Candidates) {
		t.Errorf("count %d does not match %d candidates", res.Count, len(res.Candidates))
	}
	if res.Annotated == nil {
		t.Fatal("expected an annotated image")
	}
	if res.Annotated.MimeType != "image/png" || res.Annotated.ImageBase64 == "" {
		t.Errorf("annotated: %+v", res.Annotated)
	}
	if res.Annotated.Width != 320 || res.Annotated.Height != 240 {
		t.Errorf("annotated size: got %dx%d", res.Annotated.Width, res.Annotated.Height)
	}
}

func TestHandleToolsCall_PlatePreprocess(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 120, 40, color.RGBA{90, 90, 90, 255})

	var res PreprocessResult
	decodeContent(t, callTool(t, s, "plate_preprocess", map[string]interface{}{"path": imgPath}), &res)

	if res.MimeType != "image/png" || res.ImageBase64 == "" {
		t.Errorf("result: %+v", res)
	}
	if res.Width < 120 || res.Height < 40 {
		t.Errorf("preprocessed image should not shrink, got %dx%d", res.Width, res.Height)
	}
	want := imaging.Region{X1: 0, Y1: 0, X2: 120, Y2: 40}
	if res.Region != want {
		t.Errorf("region: got %+v, want %+v", res.Region, want)
	}
}

func TestHandleToolsCall_PlateNormalize(t *testing.T) {
	s := New(nil)

	var res NormalizeResult
	decodeContent(t, callTool(t, s, "plate_normalize", map[string]interface{}{"text": " ab - 123 "}), &res)

	if res.Canonical != "AB123" {
		t.Errorf("canonical: got %s, want AB123", res.Canonical)
	}
	if res.Display != "AB-123" {
		t.Errorf("display: got %s, want AB-123", res.Display)
	}
}

func TestHandleToolsCall_PlateValidate(t *testing.T) {
	s := New(nil)

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantValid  bool
		wantLocale string
	}{
		{"default locale", map[string]interface{}{"text": "ab 123"}, true, "international"},
		{"too short", map[string]interface{}{"text": "a1"}, false, "international"},
		{"strict needs a letter", map[string]interface{}{"text": "1234", "locale": "strict"}, false, "strict"},
		{"strict mixed", map[string]interface{}{"text": "abc123", "locale": "strict"}, true, "strict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res ValidateResult
			decodeContent(t, callTool(t, s, "plate_validate", tt.args), &res)
			if res.Valid != tt.wantValid {
				t.Errorf("valid: got %v (%s), want %v", res.Valid, res.Reason, tt.wantValid)
			}
			if res.Locale != tt.wantLocale {
				t.Errorf("locale: got %s, want %s", res.Locale, tt.wantLocale)
			}
			if res.Reason == "" {
				t.Error("reason should not be empty")
			}
		})
	}
}

func TestHandleToolsCall_PlateValidateUnknownLocale(t *testing.T) {
	s := New(nil)
	resp := callTool(t, s, "plate_validate", map[string]interface{}{"text": "AB123", "locale": "atlantis"})
	if resp.Error == nil {
		t.Fatal("Expected error for unknown locale")
	}
}

func TestHandleToolsCall_PlateCorrect(t *testing.T) {
	s := New(nil)

	tests := []struct {
		text        string
		wantCorrect string
		wantChanged bool
	}{
		{"071234", "O71234", true},
		{"ABC1234", "ABC1234", false},
		{"8 AB-1O5", "BAB105", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var res CorrectResult
			decodeContent(t, callTool(t, s, "plate_correct", map[string]interface{}{"text": tt.text}), &res)
			if res.Corrected != tt.wantCorrect {
				t.Errorf("corrected: got %s, want %s", res.Corrected, tt.wantCorrect)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("changed: got %v, want %v", res.Changed, tt.wantChanged)
			}
		})
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := New(nil)
	resp := callTool(t, s, "image_crop", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`[1, 2, 3]`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}
