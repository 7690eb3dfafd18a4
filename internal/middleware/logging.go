package middleware

import (
	"net/http"
	"strconv"
	"time"

	"stopsearch-bknd/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RequestLogger struct {
	logr *zap.Logger
}

func NewRequestLogger(logr *zap.Logger) *RequestLogger {
	return &RequestLogger{logr: logr}
}

// Handler logs each request and records its duration under the matched
// route pattern.
func (m *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(start)

		route := routePattern(r)
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(took.Seconds())

		fields := []zap.Field{
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", took),
		}
		switch {
		case status >= http.StatusInternalServerError:
			m.logr.Error("request", fields...)
		case status >= http.StatusBadRequest:
			m.logr.Warn("request", fields...)
		default:
			m.logr.Debug("request", fields...)
		}
	})
}

// routePattern keeps metric cardinality bounded for unmatched paths.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
