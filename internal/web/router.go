package web

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires the handler into a gin engine with recovery and request
// logging.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h))
	r.MaxMultipartMemory = h.opts.MaxUploadBytes

	r.POST("/detect", h.Detect)
	r.GET("/session/plate", h.SessionPlate)
	r.DELETE("/session/plate", h.ClearSessionPlate)
	r.GET("/health", h.Health)
	return r
}

func requestLogger(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
