package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/drill-dungeon/internal/logging"
)

// TraceIDKey — ключ gin.Context с идентификатором трассировки запроса
const TraceIDKey = "trace_id"

// quietRoutes опрашиваются часто и пишутся только на уровне TRACE
var quietRoutes = map[string]bool{
	"/health":    true,
	"/metrics":   true,
	"/ws/events": true,
}

// RequestLogger присваивает запросу trace-id и пишет одну строку на ответ.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.GetAPILogger()
	}
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := requestTraceID(c)
		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-Id", traceID)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		switch {
		case status >= 500:
			rl.logger.Error("[HTTP] %s %s %d %s trace=%s err=%s", c.Request.Method, route, status, latency, traceID, c.Errors.String())
		case status >= 400:
			rl.logger.Warn("[HTTP] %s %s %d %s trace=%s", c.Request.Method, route, status, latency, traceID)
		case quietRoutes[route]:
			rl.logger.Trace("[HTTP] %s %s %d %s", c.Request.Method, route, status, latency)
		default:
			rl.logger.Info("[HTTP] %s %s %d %s trace=%s", c.Request.Method, route, status, latency, traceID)
		}
	}
}

// requestTraceID берёт trace-id открытого otelgin span, иначе выдаёт UUID
func requestTraceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}
