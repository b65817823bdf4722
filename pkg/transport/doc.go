// Package transport defines the handler interfaces and middleware chain
// sitting between the HTTP layer and the translation engine.
//
// The HTTP adapter in pkg/transport/http deserializes incoming requests
// into the wire types of pkg/api, dispatches them through a Handler, and
// serializes the result back as either a complete JSON response or a
// stream of SSE frames.
//
// # Handler
//
// Handler is the single contract between transport and engine: one
// Handle call per request, with the operation (generate, stream,
// countTokens) carried in the Request. The ResponseWriter abstracts the
// output side so the engine never touches the HTTP connection.
//
// # Middleware
//
// Middleware wraps a Handler with cross-cutting concerns. Built-in
// middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
package transport
