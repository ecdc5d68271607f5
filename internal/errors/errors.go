// Package errors defines the coded error type shared by the plate reader.
//
// Errors raised inside the detection pipeline never cross the
// pipeline.Detector boundary. They are attached to per-attempt results and
// logged. The web and MCP layers use the codes to pick a response.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorDecodeFailed ErrorCode = "DECODE_FAILED"
	ErrorEmptyImage   ErrorCode = "EMPTY_IMAGE"

	// Stage errors
	ErrorOCRFailed         ErrorCode = "OCR_FAILED"
	ErrorDetectorFailed    ErrorCode = "DETECTOR_FAILED"
	ErrorEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorPanic             ErrorCode = "PANIC"
	ErrorTimeout           ErrorCode = "TIMEOUT"

	// Setup errors
	ErrorInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrorSessionFailed ErrorCode = "SESSION_FAILED"
)

// PipelineError represents a structured error raised by one stage.
type PipelineError struct {
	Code      ErrorCode
	Message   string
	Stage     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// ToMap flattens the error for JSON responses and log fields.
func (e *PipelineError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}
	if e.Stage != "" {
		result["stage"] = e.Stage
	}
	for k, v := range e.Details {
		result[k] = v
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	return result
}

// HasCode reports whether any PipelineError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var pe *PipelineError
		if !stderrors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Cause
	}
	return false
}

// Factory functions for common errors

func NewDecodeError(cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorDecodeFailed,
		Message:   "Failed to decode image",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewEmptyImageError(width, height int) *PipelineError {
	return &PipelineError{
		Code:      ErrorEmptyImage,
		Message:   fmt.Sprintf("Image has no usable pixels (%dx%d)", width, height),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"width":  width,
			"height": height,
		},
	}
}

func NewOCRFailedError(stage, profile string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed with profile: %s", profile),
		Stage:     stage,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"profile": profile,
		},
		Cause: cause,
	}
}

func NewDetectorFailedError(threshold float64, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorDetectorFailed,
		Message:   fmt.Sprintf("Learned detector failed at threshold %.2f", threshold),
		Stage:     "learned",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"threshold": threshold,
		},
		Cause: cause,
	}
}

func NewEngineUnavailableError(engine string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorEngineUnavailable,
		Message:   fmt.Sprintf("Recognition engine unavailable: %s", engine),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"engine": engine,
		},
		Cause: cause,
	}
}

func NewPanicError(stage string, recovered interface{}) *PipelineError {
	return &PipelineError{
		Code:      ErrorPanic,
		Message:   fmt.Sprintf("Recovered from panic: %v", recovered),
		Stage:     stage,
		Timestamp: time.Now(),
	}
}

func NewTimeoutError(after time.Duration, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorTimeout,
		Message:   fmt.Sprintf("Detection did not finish within %v", after),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": after.String(),
		},
		Cause: cause,
	}
}

func NewInvalidConfigError(problems []string) *PipelineError {
	return &PipelineError{
		Code:      ErrorInvalidConfig,
		Message:   fmt.Sprintf("Invalid configuration: %d problem(s)", len(problems)),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"problems": problems,
		},
	}
}

func NewSessionError(op string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorSessionFailed,
		Message:   fmt.Sprintf("Session store %s failed", op),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": op,
		},
		Cause: cause,
	}
}
