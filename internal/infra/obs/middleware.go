package obs

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CompanyHeader   = "X-Company-ID"
	RequestIDHeader = "X-Request-ID"
)

// Middleware carries the gin handlers that tag, log and guard every request.
type Middleware struct {
	Logger *slog.Logger
}

type requestKey struct{}

type requestScope struct {
	id     string
	logger *slog.Logger
}

// RequestScope assigns the request id, echoing a client supplied one, and
// stores a logger tagged with it in the request context.
func (m Middleware) RequestScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		scope := requestScope{id: id}
		if m.Logger != nil {
			scope.logger = m.Logger.With("request_id", id)
			if company := c.GetHeader(CompanyHeader); company != "" {
				scope.logger = scope.logger.With("company_id", company)
			}
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestKey{}, scope))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one line per request. 5xx responses log at error level.
func (m Middleware) AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger := LoggerFrom(c.Request.Context(), m.Logger)
		if logger == nil {
			return
		}
		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		logger.Log(c.Request.Context(), level, "http",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration", time.Since(started))
	}
}

// Recover turns a handler panic into a 500 with the panic and stack logged.
func (m Middleware) Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if logger := LoggerFrom(c.Request.Context(), m.Logger); logger != nil {
				logger.Error("handler panic", "panic", rec, "stack", string(debug.Stack()))
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request scoped logger, or fallback outside a request.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if scope, ok := ctx.Value(requestKey{}).(requestScope); ok && scope.logger != nil {
		return scope.logger
	}
	return fallback
}

func RequestIDFromContext(ctx context.Context) string {
	scope, _ := ctx.Value(requestKey{}).(requestScope)
	return scope.id
}
