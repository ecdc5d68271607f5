package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func textProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Raw plate text as read by an OCR engine",
	}
}

// regionProperties describes an optional crop rectangle. Omitting all four
// coordinates selects the whole image.
func regionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"x1": map[string]interface{}{
			"type":        "integer",
			"description": "Left edge X coordinate (0-based). Omit all four coordinates for the whole image.",
		},
		"y1": map[string]interface{}{
			"type":        "integer",
			"description": "Top edge Y coordinate (0-based)",
		},
		"x2": map[string]interface{}{
			"type":        "integer",
			"description": "Right edge X coordinate (exclusive)",
		},
		"y2": map[string]interface{}{
			"type":        "integer",
			"description": "Bottom edge Y coordinate (exclusive)",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load a photo and return its upright dimensions, its format (sniffed from the file contents) and whether plate locating will work on a downscaled copy. The decoded photo is cached for later plate tools on the same path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the upright width and height of a photo, after EXIF orientation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Plate Recognition
		{
			Name:        "plate_detect",
			Description: "Find and read the license plate in a photo. Runs the learned detector (when configured), geometric candidates, a sliding-window scan and a whole-image read in that order, stopping at the first stage that yields a valid plate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"include_attempts": map[string]interface{}{
						"type":        "boolean",
						"description": "Report every stage that ran with its candidate count and errors",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_ocr_region",
			Description: "Read a plate from one rectangle of an image: preprocess, try every OCR profile, then rotated retries. Use this after plate_locate_candidates to check a specific candidate.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regionProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "plate_locate_candidates",
			Description: "List rectangles that look like plates (edge density, aspect ratio, size), largest first, in image coordinates. Optionally returns an annotated PNG with numbered outlines.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of candidates to return (0 for all)",
						"default":     0,
					},
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Include a base64 PNG with the candidates outlined",
						"default":     false,
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Outline color as hex (e.g. '#FF0000')",
						"default":     "#00FF00",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_preprocess",
			Description: "Return the binarized image the OCR engine would see for a region (grayscale, upscale, blur, CLAHE, Otsu threshold) as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regionProperties(),
				"required":   []string{"path"},
			},
		},

		// Plate Text
		{
			Name:        "plate_normalize",
			Description: "Canonicalize raw plate text: fold full-width and alternate-script digits, upper-case, and keep only A-Z and 0-9. Also returns the display form with group separators.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": textProperty(),
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "plate_validate",
			Description: "Normalize text and check it against a plate rule table, explaining the verdict.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": textProperty(),
					"locale": map[string]interface{}{
						"type":        "string",
						"description": "Rule table to check against. Defaults to the server's configured rules.",
						"enum":        []string{"international", "strict"},
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "plate_correct",
			Description: "Repair common OCR glyph confusions: a leading digit becomes the letter it resembles and later O/I/Z/S/G/T become digits.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": textProperty(),
				},
				"required": []string{"text"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
