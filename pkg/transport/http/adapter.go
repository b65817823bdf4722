package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/debug"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/transport"
)

// Adapter serves the gateway's inbound API over HTTP. It routes
// requests to the Handler and serializes results.
//
// The inbound protocol encodes the operation as a colon suffix on the
// model path segment ("/v1beta/models/gemini-2.0-flash:generateContent"),
// which ServeMux patterns cannot express. The whole segment is captured
// as {model} and split on the last colon here.
type Adapter struct {
	handler  transport.Handler
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter around the given Handler.
// Middleware is applied to the Handler in the given order.
func NewAdapter(handler transport.Handler, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}

	a := &Adapter{
		handler:  handler,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1beta/models/{model}", a.handleModelOp)
	a.mux.HandleFunc("POST /models/{model}", a.handleModelOp)

	return a
}

// Handler returns the http.Handler for this adapter. The returned
// handler includes HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// InFlight exposes the registry of active streaming requests so the
// server can cancel them on shutdown.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// splitModelOp splits a "{model}:{operation}" path segment on its last
// colon. Model names themselves may contain colons.
func splitModelOp(segment string) (model string, op transport.Operation, err *api.APIError) {
	idx := strings.LastIndex(segment, ":")
	if idx <= 0 || idx == len(segment)-1 {
		return "", "", api.NewNotFoundError(
			"unknown path, expected model:operation, got %q", segment)
	}
	model = segment[:idx]
	switch action := segment[idx+1:]; action {
	case "generateContent":
		return model, transport.OpGenerate, nil
	case "streamGenerateContent":
		return model, transport.OpStreamGenerate, nil
	case "countTokens":
		return model, transport.OpCountTokens, nil
	default:
		return "", "", api.NewNotFoundError("unknown operation %q", action)
	}
}

// handleModelOp handles POST /v1beta/models/{model}:{operation}.
func (a *Adapter) handleModelOp(w http.ResponseWriter, r *http.Request) {
	modelName, op, apiErr := splitModelOp(r.PathValue("model"))
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		transport.WriteErrorResponse(w,
			api.NewMalformedRequestError("Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var body api.GenerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewMalformedRequestError("request body too large (max %d bytes)", a.config.MaxBodySize),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteAPIError(w, api.NewMalformedRequestError("invalid JSON: %s", err.Error()))
		return
	}

	// A model in the body overrides the path segment.
	if body.Model != "" {
		modelName = strings.TrimPrefix(body.Model, "models/")
	}

	debug.Log("transport", "routing request",
		"operation", string(op), "model", modelName, "contents", len(body.Contents))

	req := &transport.Request{Op: op, Model: modelName, Body: &body}

	if op == transport.OpStreamGenerate {
		a.handleStreaming(w, r, req)
		return
	}

	fw := newFrameWriter(w)
	if err := a.handler.Handle(r.Context(), req, fw); err != nil {
		a.writeHandlerError(w, fw, err)
	}
}

// handleStreaming runs a streamGenerateContent request with its cancel
// function registered for shutdown.
func (a *Adapter) handleStreaming(w http.ResponseWriter, r *http.Request, req *transport.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := transport.RequestIDFromContext(ctx)
	if id == "" {
		id = fmt.Sprintf("%p", req)
	}
	a.inflight.Register(id, cancel)
	defer a.inflight.Remove(id)

	fw := newFrameWriter(w)
	if err := a.handler.Handle(ctx, req, fw); err != nil {
		a.writeHandlerError(w, fw, err)
	}
}

// writeHandlerError writes an error from the handler. If streaming has
// already started, the error goes out as a terminal frame on the open
// stream; otherwise as a plain JSON error response.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, fw *frameWriter, err error) {
	apiErr := api.AsAPIError(err)

	if fw.hasStartedStreaming() {
		fw.WriteFrame(context.Background(), api.StreamFrame{Error: apiErr})
		return
	}
	transport.WriteAPIError(w, apiErr)
}

// httpRequestIDMiddleware propagates the X-Request-ID header into the
// request context and reflects the effective ID on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}
