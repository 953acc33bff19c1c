package transport

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portidem "github.com/alanyang/promptledger/internal/port/idempotency"
)

// noisyPaths are high-frequency read paths logged at Debug to keep Info clean.
var noisyPaths = map[string]bool{
	"/api/prompts": true,
	"/api/runs":    true,
	"/api/ws":      true,
	"/health":      true,
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if c.Request.Method == http.MethodGet && noisyPaths[c.Request.URL.Path] {
			slog.Debug("request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS, PUT")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+IdempotencyHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

const (
	IdempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"
)

// reservationTTL bounds how long an in-flight request holds its key. A
// process that dies mid-request frees the key after this long.
const reservationTTL = time.Minute

// IdempotencyMiddleware replays the stored response for a repeated mutating
// request carrying an Idempotency-Key header. Keys are scoped by method and
// path and reserved before the handler runs, so a concurrent duplicate gets
// 409 instead of executing twice. Server errors are not stored so the client
// can retry them.
func IdempotencyMiddleware(store portidem.Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}
		scoped := c.Request.Method + " " + c.Request.URL.Path + " " + key
		ctx := c.Request.Context()

		existing, reserved, err := store.Reserve(ctx, scoped, min(ttl, reservationTTL))
		switch {
		case err != nil:
			slog.WarnContext(ctx, "idempotency reservation failed", "key", key, "error", err)
			c.Next()
			return
		case !reserved && existing.Pending():
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this " + IdempotencyHeader + " is still in progress"})
			return
		case !reserved:
			c.Header(replayHeader, "true")
			c.Data(existing.Status, existing.ContentType, existing.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				slog.WarnContext(ctx, "idempotency release failed", "key", key, "error", err)
			}
			return
		}
		resp := portidem.Response{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := store.Put(context.WithoutCancel(ctx), scoped, resp, ttl); err != nil {
			slog.WarnContext(ctx, "idempotency store failed", "key", key, "error", err)
		}
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
