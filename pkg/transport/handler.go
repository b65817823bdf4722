package transport

import (
	"context"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
)

// Operation identifies which inbound endpoint a request arrived on.
type Operation string

const (
	// OpGenerate is the synchronous generateContent operation.
	OpGenerate Operation = "generateContent"
	// OpStreamGenerate is the streaming streamGenerateContent operation.
	OpStreamGenerate Operation = "streamGenerateContent"
	// OpCountTokens is the countTokens operation.
	OpCountTokens Operation = "countTokens"
)

// Request is one inbound request after routing: the operation, the
// model name from the URL path, and the decoded body.
type Request struct {
	Op    Operation
	Model string
	Body  *api.GenerateContentRequest
}

// Handler processes one request and writes the result to the
// ResponseWriter. A returned error is serialized as the protocol's
// error envelope; for streaming operations that already produced
// frames, errors surface as a terminal error frame instead.
type Handler interface {
	Handle(ctx context.Context, req *Request, w ResponseWriter) error
}

// HandlerFunc is an adapter that allows using an ordinary function as a
// Handler.
type HandlerFunc func(ctx context.Context, req *Request, w ResponseWriter) error

// Handle calls f(ctx, req, w).
func (f HandlerFunc) Handle(ctx context.Context, req *Request, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts streaming and non-streaming output.
//
// WriteFrame and the two non-streaming writes are mutually exclusive on
// a single writer instance. WriteFrame blocks until the frame is handed
// to the connection, which gives the engine natural backpressure: a
// slow client slows frame production rather than growing a buffer.
type ResponseWriter interface {
	// WriteFrame sends one streaming frame. Returns an error if the
	// client has disconnected or a terminal frame was already sent.
	WriteFrame(ctx context.Context, frame api.StreamFrame) error

	// WriteResponse sends a complete generateContent response.
	WriteResponse(ctx context.Context, resp *api.GenerateContentResponse) error

	// WriteTokenCount sends a countTokens response.
	WriteTokenCount(ctx context.Context, resp *api.CountTokensResponse) error

	// Flush ensures buffered data reaches the client.
	Flush() error
}
