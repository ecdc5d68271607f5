// Package server implements the MCP (Model Context Protocol) server for
// license plate recognition.
//
// It exposes the plate pipeline as JSON-RPC 2.0 tools so an MCP client can
// run detection end to end or drive the individual steps (locate, crop,
// preprocess, read, normalize, validate) and inspect each result.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Plate Recognition:
//   - plate_detect: Full strategy chain over one photo
//   - plate_ocr_region: Read one rectangle
//   - plate_locate_candidates: Geometric plate candidates, optionally annotated
//   - plate_preprocess: The binarized image the OCR engine sees
//
// Plate Text:
//   - plate_normalize: Canonical and display forms
//   - plate_validate: Rule table verdict with a reason
//   - plate_correct: Glyph confusion repair
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the process, so a
// client stepping through one photo decodes it once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the error string, carrying a pipeline error code where one applies
//
// A photo without a readable plate is not an error: plate_detect returns
// found false.
//
// # Usage
//
//	srv := server.New(detector, server.WithLogger(log))
//	if err := srv.Run(); err != nil {
//	    log.Error("server stopped", "error", err)
//	}
package server
