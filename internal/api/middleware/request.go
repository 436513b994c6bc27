package middleware

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"civic-portal/internal/api/session"
	"civic-portal/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	msgTooLarge     = "El archivo es demasiado grande. El tamaño máximo es 16MB."
)

// RequestID tags every request with an id, reusing the caller's header when
// present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger replaces gin's access log with one structured entry per
// request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithRequestID(c.GetString("request_id")).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if uid, ok := c.Get("user_id"); ok {
			entry = entry.WithField("user_id", uid)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

// Recovery turns a panic into a logged 500 page.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		log.WithRequestID(c.GetString("request_id")).
			WithField("panic", err).
			WithField("path", c.Request.URL.Path).
			Error("panic recovered")
		c.AbortWithStatusJSON(500, gin.H{"page": "error", "error": "Error interno del servidor"})
	})
}

// BodyLimit caps request bodies at max bytes. A declared length over the cap
// is refused up front; a body that only turns out too large while being read
// fails with *http.MaxBytesError, which handlers pass to TooLarge.
func BodyLimit(sm *session.Manager, max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > max {
			TooLarge(sm, c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// TooLarge sends the visitor back where they came from with the size flash.
func TooLarge(sm *session.Manager, c *gin.Context) {
	sm.AddFlash(c, session.Error, msgTooLarge)
	c.Redirect(303, localReferer(c))
	c.Abort()
}

// localReferer returns the Referer as a local path when it points at this
// host, and "/" otherwise.
func localReferer(c *gin.Context) string {
	u, err := url.Parse(c.Request.Referer())
	if err != nil || u.Path == "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	if u.Host != "" && u.Host != c.Request.Host {
		return "/"
	}
	if u.Host == "" && (u.Scheme != "" || strings.HasPrefix(u.Path, "//")) {
		return "/"
	}
	return u.RequestURI()
}
