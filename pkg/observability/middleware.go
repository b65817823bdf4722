package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - gemproxy_requests_total: per request, with operation, status class, and model labels
//   - gemproxy_request_duration_seconds: request duration
//   - gemproxy_streaming_connections_active: incremented while a stream is in flight
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		model, operation := parseModelPath(r.URL.Path)

		if operation == "streamGenerateContent" {
			StreamingConnections.Inc()
			defer StreamingConnections.Dec()
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		statusStr := strconv.Itoa(sw.status/100) + "xx"
		RequestsTotal.WithLabelValues(operation, statusStr, model).Inc()
		RequestDuration.WithLabelValues(operation, model).Observe(time.Since(start).Seconds())
	})
}

// parseModelPath extracts the model and operation from a model-scoped
// route like /v1beta/models/{model}:{operation}. Non-model routes yield
// "none" for both labels, keeping cardinality bounded.
func parseModelPath(path string) (model, operation string) {
	segment := path[strings.LastIndex(path, "/")+1:]
	idx := strings.LastIndex(segment, ":")
	if idx <= 0 || idx == len(segment)-1 {
		return "none", "none"
	}
	return segment[:idx], segment[idx+1:]
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements
// http.Flusher. Required for SSE streaming.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
