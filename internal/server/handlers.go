package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/pipeline"
	"github.com/ironsheep/plate-reader/internal/plate"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "plate_detect", "plate_validate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Debug("tool finished", "tool", params.Name, "elapsed", time.Since(start))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Image tools load through the server's cache, so repeated calls on the
// same path decode the file once.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Plate Recognition
	case "plate_detect":
		return s.handlePlateDetect(args)
	case "plate_ocr_region":
		return s.handlePlateOCRRegion(args)
	case "plate_locate_candidates":
		return s.handlePlateLocateCandidates(args)
	case "plate_preprocess":
		return s.handlePlatePreprocess(args)

	// Plate Text
	case "plate_normalize":
		return s.handlePlateNormalize(args)
	case "plate_validate":
		return s.handlePlateValidate(args)
	case "plate_correct":
		return s.handlePlateCorrect(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path, s.detector.Config().MaxImageWidth)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadSize(s.cache, a.Path)
}

// === Plate Recognition Handlers ===

type plateDetectArgs struct {
	Path            string `json:"path"`
	IncludeAttempts bool   `json:"include_attempts"`
}

// AttemptSummary is one strategy run as reported to MCP clients.
type AttemptSummary struct {
	Strategy   string  `json:"strategy"`
	Candidates int     `json:"candidates"`
	Found      bool    `json:"found"`
	Plate      string  `json:"plate_text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	ElapsedMS  int64   `json:"elapsed_ms"`
	Error      string  `json:"error,omitempty"`
}

// DetectResult is the plate_detect response.
type DetectResult struct {
	Found             bool             `json:"found"`
	Plate             string           `json:"plate_text,omitempty"`
	Confidence        float64          `json:"confidence"`
	ConfidencePercent int              `json:"confidence_percent"`
	Source            string           `json:"source,omitempty"`
	Profile           string           `json:"profile,omitempty"`
	PlateColor        string           `json:"plate_color,omitempty"`
	Region            *imaging.Region  `json:"region,omitempty"`
	Attempts          []AttemptSummary `json:"attempts,omitempty"`
}

func (s *Server) handlePlateDetect(args json.RawMessage) (interface{}, error) {
	var a plateDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if !s.detector.Ready() {
		return nil, perrors.NewEngineUnavailableError("none", fmt.Errorf("no OCR engine configured"))
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if timeout := s.detector.Config().Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := pipeline.DetectContext(ctx, s.detector, img)
	if err != nil {
		return nil, err
	}

	out := &DetectResult{
		Found:             res.Found,
		Plate:             res.Text,
		Confidence:        res.Confidence,
		ConfidencePercent: int(res.Confidence * 100),
		Source:            res.Source,
		Profile:           res.Profile,
		PlateColor:        res.PlateColor,
	}
	if res.Found {
		region := res.Region
		out.Region = &region
	}
	if a.IncludeAttempts {
		for _, at := range res.Attempts {
			sum := AttemptSummary{
				Strategy:   at.Strategy,
				Candidates: at.Candidates,
				Found:      at.Found,
				ElapsedMS:  at.Elapsed.Milliseconds(),
			}
			if at.Found {
				sum.Plate = at.Best.Text
				sum.Confidence = at.Best.Confidence
			}
			if at.Err != nil {
				sum.Error = at.Err.Error()
			}
			out.Attempts = append(out.Attempts, sum)
		}
	}
	return out, nil
}

type regionArgs struct {
	Path string `json:"path"`
	X1   *int   `json:"x1"`
	Y1   *int   `json:"y1"`
	X2   *int   `json:"x2"`
	Y2   *int   `json:"y2"`
}

// region returns the requested rectangle, or the whole image when no
// coordinates were given.
func (a regionArgs) region(img image.Image) (imaging.Region, error) {
	set := 0
	for _, p := range []*int{a.X1, a.Y1, a.X2, a.Y2} {
		if p != nil {
			set++
		}
	}
	switch set {
	case 0:
		return imaging.RegionFromRect(img.Bounds()), nil
	case 4:
		r := imaging.Region{X1: *a.X1, Y1: *a.Y1, X2: *a.X2, Y2: *a.Y2}
		if r.Empty() || r.Clamp(img.Bounds()).Empty() {
			return r, fmt.Errorf("region (%d,%d)-(%d,%d) is empty or outside image bounds %v",
				r.X1, r.Y1, r.X2, r.Y2, img.Bounds())
		}
		return r, nil
	default:
		return imaging.Region{}, fmt.Errorf("x1, y1, x2 and y2 must be given together")
	}
}

// RegionReadResult is the plate_ocr_region response.
type RegionReadResult struct {
	Found      bool           `json:"found"`
	Plate      string         `json:"plate_text,omitempty"`
	Confidence float64        `json:"confidence"`
	Profile    string         `json:"profile,omitempty"`
	Angle      float64        `json:"angle"`
	Region     imaging.Region `json:"region"`
	Warnings   string         `json:"warnings,omitempty"`
}

func (s *Server) handlePlateOCRRegion(args json.RawMessage) (interface{}, error) {
	var a regionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r, err := a.region(img)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.CropRegion(img, r)
	if err != nil {
		return nil, err
	}

	cand, found, err := s.detector.ReadRegion(crop)
	if perrors.HasCode(err, perrors.ErrorEngineUnavailable) {
		return nil, err
	}
	out := &RegionReadResult{
		Found:  found,
		Region: r.Clamp(img.Bounds()),
	}
	if found {
		out.Plate = cand.Text
		out.Confidence = cand.Confidence
		out.Profile = cand.Profile
		out.Angle = cand.Angle
	}
	if err != nil {
		out.Warnings = err.Error()
	}
	return out, nil
}

type plateLocateArgs struct {
	Path     string `json:"path"`
	Limit    int    `json:"limit"`
	Annotate bool   `json:"annotate"`
	Color    string `json:"color"`
}

// LocateResult is the plate_locate_candidates response.
type LocateResult struct {
	Count      int                     `json:"count"`
	Candidates []imaging.Region        `json:"candidates"`
	Annotated  *imaging.AnnotateResult `json:"annotated,omitempty"`
}

func (s *Server) handlePlateLocateCandidates(args json.RawMessage) (interface{}, error) {
	var a plateLocateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	regions := s.detector.Locate(img)
	if a.Limit > 0 && len(regions) > a.Limit {
		regions = regions[:a.Limit]
	}
	out := &LocateResult{Count: len(regions), Candidates: regions}
	if out.Candidates == nil {
		out.Candidates = []imaging.Region{}
	}
	if a.Annotate {
		ann, err := imaging.Annotate(img, regions, a.Color)
		if err != nil {
			return nil, err
		}
		out.Annotated = ann
	}
	return out, nil
}

// PreprocessResult is the plate_preprocess response.
type PreprocessResult struct {
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Region      imaging.Region `json:"region"`
	ImageBase64 string         `json:"image_base64"`
	MimeType    string         `json:"mime_type"`
	Degraded    string         `json:"degraded,omitempty"`
}

func (s *Server) handlePlatePreprocess(args json.RawMessage) (interface{}, error) {
	var a regionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r, err := a.region(img)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.CropRegion(img, r)
	if err != nil {
		return nil, err
	}

	pre := imaging.NewPreprocessor(s.detector.Config().Preprocess)
	processed, perr := pre.Process(crop)
	encoded, err := imaging.EncodePNGBase64(processed)
	if err != nil {
		return nil, err
	}
	b := processed.Bounds()
	out := &PreprocessResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Region:      r.Clamp(img.Bounds()),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}
	if perr != nil {
		out.Degraded = perr.Error()
	}
	return out, nil
}

// === Plate Text Handlers ===

type plateTextArgs struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

// NormalizeResult is the plate_normalize response.
type NormalizeResult struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical"`
	Display   string `json:"display"`
}

func (s *Server) handlePlateNormalize(args json.RawMessage) (interface{}, error) {
	var a plateTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return &NormalizeResult{
		Input:     a.Text,
		Canonical: plate.Normalize(a.Text),
		Display:   plate.Transitional(a.Text),
	}, nil
}

// ValidateResult is the plate_validate response.
type ValidateResult struct {
	Canonical string `json:"canonical"`
	Locale    string `json:"locale"`
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason"`
}

func (s *Server) handlePlateValidate(args json.RawMessage) (interface{}, error) {
	var a plateTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	v := s.validator
	if a.Locale != "" {
		rules, ok := plate.Locale(a.Locale)
		if !ok {
			return nil, fmt.Errorf("unknown locale %q (known: %v)", a.Locale, plate.LocaleNames())
		}
		nv, err := plate.NewValidator(rules)
		if err != nil {
			return nil, err
		}
		v = nv
	}

	canonical := plate.Normalize(a.Text)
	ok, reason := v.Explain(canonical)
	return &ValidateResult{
		Canonical: canonical,
		Locale:    v.Rules().Name,
		Valid:     ok,
		Reason:    reason,
	}, nil
}

// CorrectResult is the plate_correct response.
type CorrectResult struct {
	Canonical string `json:"canonical"`
	Corrected string `json:"corrected"`
	Changed   bool   `json:"changed"`
	Valid     bool   `json:"valid"`
}

func (s *Server) handlePlateCorrect(args json.RawMessage) (interface{}, error) {
	var a plateTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	canonical := plate.Normalize(a.Text)
	corrected := plate.DefaultCorrector().Correct(canonical)
	return &CorrectResult{
		Canonical: canonical,
		Corrected: corrected,
		Changed:   corrected != canonical,
		Valid:     s.validator.Valid(corrected),
	}, nil
}
