package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TraceIDKey is the gin context key and log field name
const TraceIDKey = "trace_id"

// TraceIDHeader is read from requests and echoed on responses
const TraceIDHeader = "X-Trace-ID"

type traceIDCtxKey struct{}

// GenerateTraceID returns a fresh trace id
func GenerateTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores id in ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey{}, traceID)
}

// GetTraceIDFromContext returns the id stored by WithTraceID, or ""
func GetTraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDCtxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// TraceIDHook copies the trace id of an entry's context into its fields
type TraceIDHook struct{}

// Levels returns the levels the hook fires on
func (hook *TraceIDHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire runs on every log entry
func (hook *TraceIDHook) Fire(entry *logrus.Entry) error {
	if traceID := GetTraceIDFromContext(entry.Context); traceID != "" {
		entry.Data[TraceIDKey] = traceID
	}
	return nil
}

// InitLogging configures the global logrus logger.
// format is "json" or "text"; an unknown level falls back to info.
func InitLogging(level, format string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	logrus.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006/01/02 15:04:05",
			DisableColors:   true,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return "", fmt.Sprintf("%s:%d", shortFile(f.File), f.Line)
			},
		})
	}
	logrus.SetReportCaller(lvl >= logrus.DebugLevel)
	logrus.AddHook(&TraceIDHook{})
}

func shortFile(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		if j := strings.LastIndex(path[:i], "/"); j >= 0 {
			return path[j+1:]
		}
	}
	return path
}

// TraceIDMiddleware reads or generates a trace id and makes it visible to
// handlers (gin context), to logs (request context) and to the client (header).
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		c.Set(TraceIDKey, traceID)
		c.Request = c.Request.WithContext(WithTraceID(c.Request.Context(), traceID))
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceIDFromGin returns the id set by TraceIDMiddleware
func GetTraceIDFromGin(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}

// RequestLogger logs one line per HTTP request on logrus
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("HTTP request")
		case c.Writer.Status() >= 400:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}
