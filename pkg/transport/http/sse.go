package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/transport"
)

// writerState tracks the state of a frameWriter.
type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // WriteFrame has been called
	writerCompleted                    // terminal frame or complete response written
)

// frameWriter implements transport.ResponseWriter over an HTTP
// connection. Streaming output uses the inbound protocol's SSE framing:
// data-only lines, one JSON payload per frame, no event names and no
// end-of-stream sentinel. The connection closing is the end of stream.
type frameWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*frameWriter)(nil)

func newFrameWriter(w http.ResponseWriter) *frameWriter {
	return &frameWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteFrame sends one frame as:
//
//	data: {json}\n
//	\n
//
// Each frame is flushed immediately. A frame carrying an error or a
// finish reason is terminal; writes after it fail.
func (s *frameWriter) WriteFrame(ctx context.Context, frame api.StreamFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write frame: writer is completed")
	}

	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.state = writerStreaming
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if isTerminalFrame(frame) {
		s.state = writerCompleted
	}
	return nil
}

// WriteResponse sends a complete JSON response.
func (s *frameWriter) WriteResponse(ctx context.Context, resp *api.GenerateContentResponse) error {
	return s.writeJSON(resp)
}

// WriteTokenCount sends a countTokens JSON response.
func (s *frameWriter) WriteTokenCount(ctx context.Context, resp *api.CountTokensResponse) error {
	return s.writeJSON(resp)
}

func (s *frameWriter) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != writerIdle {
		return errors.New("cannot write response: writer already used")
	}
	s.state = writerCompleted

	s.w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(s.w).Encode(v)
}

// Flush forces buffered output to the client.
func (s *frameWriter) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rc.Flush()
}

// hasStartedStreaming reports whether at least one frame has been
// written. Used by the adapter to decide between a JSON error response
// and a terminal error frame.
func (s *frameWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}

func isTerminalFrame(frame api.StreamFrame) bool {
	if frame.Error != nil {
		return true
	}
	if frame.Response != nil {
		for _, c := range frame.Response.Candidates {
			if c.FinishReason != "" {
				return true
			}
		}
	}
	return false
}
