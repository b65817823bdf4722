package transport

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server error responses. The panic value and stack
// are logged; the client sees only a generic internal error. The server
// continues to accept new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in handler",
						"request_id", RequestIDFromContext(ctx),
						"operation", string(req.Op),
						"model", req.Model,
						"panic", r,
						"stack", string(debug.Stack()),
					)
					retErr = api.NewServerError("internal server error")
				}
			}()
			return next.Handle(ctx, req, w)
		})
	}
}
