// Package web exposes plate detection over HTTP for the garage web app.
//
// Routes:
//
//	POST   /detect          multipart upload (field "image", or "file")
//	GET    /session/plate   plate detected earlier in this browser session
//	DELETE /session/plate   forget it
//	GET    /health          recognizer and detector status
//
// A plate that is not found is a normal 200 response with success false, so
// the client can route the user to manual entry.
package web

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ironsheep/plate-reader/internal/config"
	perrors "github.com/ironsheep/plate-reader/internal/errors"
	"github.com/ironsheep/plate-reader/internal/imaging"
	"github.com/ironsheep/plate-reader/internal/logging"
	"github.com/ironsheep/plate-reader/internal/pipeline"
	"github.com/ironsheep/plate-reader/internal/session"
)

// SessionCookie carries the session id between detect and form pages.
const SessionCookie = "plate_session"

const (
	msgNoImage     = "No image provided"
	msgEmptyImage  = "Empty image file"
	msgInvalid     = "Invalid image format"
	msgNotImage    = "Uploaded file is not an image"
	msgTooLarge    = "Image file too large"
	msgNotDetected = "No license plate detected. Ensure the plate is clear and retry."
	msgNoSession   = "No plate detected in this session"
)

// Options configures a Handler.
type Options struct {
	Detector       pipeline.PlateDetector
	Store          session.Store
	Probes         []config.Probe
	Stages         []string
	Timeout        time.Duration
	MaxUploadBytes int64
	SessionTTL     time.Duration
	Logger         *logging.Logger
}

// Handler serves the plate endpoints.
type Handler struct {
	opts Options
	log  *logging.Logger
}

// NewHandler fills defaults for zero options.
func NewHandler(opts Options) *Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.Store == nil {
		opts.Store = session.NewMemoryStore(opts.SessionTTL)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{opts: opts, log: log}
}

// DetectResponse is the body of POST /detect.
type DetectResponse struct {
	Success           bool    `json:"success"`
	Message           string  `json:"message,omitempty"`
	PlateNumber       string  `json:"plate_number,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	ConfidencePercent int     `json:"confidence_percent,omitempty"`
	PlateColor        string  `json:"plate_color,omitempty"`
	Source            string  `json:"source,omitempty"`
	SessionID         string  `json:"session_id,omitempty"`
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, DetectResponse{Success: false, Message: msg})
}

// Detect handles POST /detect.
func (h *Handler) Detect(c *gin.Context) {
	reqID := uuid.NewString()
	log := h.log.With("request_id", reqID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	file, err := uploadedFile(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		fail(c, http.StatusBadRequest, msgNoImage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Warn("failed to read upload", "error", err)
		fail(c, http.StatusBadRequest, msgInvalid)
		return
	}
	if len(data) == 0 {
		fail(c, http.StatusBadRequest, msgEmptyImage)
		return
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		log.Info("rejected upload", "mime", mime.String())
		fail(c, http.StatusUnsupportedMediaType, msgNotImage)
		return
	}

	img, err := imaging.DecodeBytes(data)
	if err != nil {
		log.Info("undecodable upload", "mime", mime.String(), "error", perrors.NewDecodeError(err))
		fail(c, http.StatusBadRequest, msgInvalid)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.Timeout)
	defer cancel()

	res, err := pipeline.DetectContext(ctx, h.opts.Detector, img)
	if err != nil {
		log.Warn("detection abandoned", "error", err)
	}
	if !res.Found {
		c.JSON(http.StatusOK, DetectResponse{Success: false, Message: msgNotDetected})
		return
	}

	sid := h.sessionID(c)
	entry := session.Entry{Plate: res.Text, Confidence: res.Confidence, DetectedAt: time.Now().UTC()}
	if err := h.opts.Store.Put(c.Request.Context(), sid, entry); err != nil {
		log.Error("failed to store plate in session", "error", perrors.NewSessionError("put", err))
		sid = ""
	} else {
		h.setCookie(c, sid)
	}

	log.Info("plate detected", "plate", res.Text, "confidence", res.Confidence, "source", res.Source)
	c.JSON(http.StatusOK, DetectResponse{
		Success:           true,
		PlateNumber:       res.Text,
		Confidence:        res.Confidence,
		ConfidencePercent: int(res.Confidence * 100),
		PlateColor:        res.PlateColor,
		Source:            res.Source,
		SessionID:         sid,
	})
}

// uploadedFile returns the "image" part, or "file" when "image" is absent.
func uploadedFile(c *gin.Context) (multipart.File, error) {
	var lastErr error
	for _, field := range []string{"image", "file"} {
		fh, err := c.FormFile(field)
		if err != nil {
			lastErr = err
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			continue
		}
		return fh.Open()
	}
	return nil, lastErr
}

// sessionID reuses the request's cookie or mints a new id.
func (h *Handler) sessionID(c *gin.Context) string {
	if sid, err := c.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(sid); err == nil {
			return sid
		}
	}
	return uuid.NewString()
}

func (h *Handler) setCookie(c *gin.Context, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sid, int(h.opts.SessionTTL.Seconds()), "/", "", false, true)
}

// SessionPlate handles GET /session/plate.
func (h *Handler) SessionPlate(c *gin.Context) {
	sid, err := c.Cookie(SessionCookie)
	if err != nil || sid == "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": msgNoSession})
		return
	}
	entry, ok, err := h.opts.Store.Get(c.Request.Context(), sid)
	if err != nil {
		h.log.Error("failed to read session", "error", perrors.NewSessionError("get", err))
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": msgNoSession})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": msgNoSession})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"plate_number": entry.Plate,
		"confidence":   entry.Confidence,
		"detected_at":  entry.DetectedAt,
	})
}

// ClearSessionPlate handles DELETE /session/plate.
func (h *Handler) ClearSessionPlate(c *gin.Context) {
	if sid, err := c.Cookie(SessionCookie); err == nil && sid != "" {
		if err := h.opts.Store.Delete(c.Request.Context(), sid); err != nil {
			h.log.Error("failed to clear session", "error", perrors.NewSessionError("delete", err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not clear session"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Health handles GET /health. It answers 503 when a required probe fails.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(h.opts.Probes))
	for _, p := range h.opts.Probes {
		if err := p.Check(ctx); err != nil {
			checks[p.Name] = err.Error()
			if p.Required {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
			continue
		}
		checks[p.Name] = "ok"
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"stages": h.opts.Stages,
	})
}
