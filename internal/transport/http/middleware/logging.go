package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v3"
)

type MetricsRecorder interface {
	Record(status int, duration time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Logger writes one ECS-shaped access log line per request and feeds the
// metrics collector when one is given. 4xx responses log at warn, 5xx at error.
func Logger(logger *slog.Logger, recorder MetricsRecorder) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	requestLog := httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS.Concise(true),
	})
	return func(next http.Handler) http.Handler {
		return requestLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestID := GetRequestID(r.Context()); requestID != "" {
				httplog.SetAttrs(r.Context(), slog.String("http.request.id", requestID))
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if recorder != nil {
				recorder.Record(rec.status, time.Since(start))
			}
		}))
	}
}
