package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
)

// maxSSELineSize bounds a single SSE line. Argument fragments are small,
// but a backend may send a whole completion in one chunk.
const maxSSELineSize = 1024 * 1024

// ParseSSEStream reads Chat Completions SSE chunks from body, converts
// them to Events, and sends them on ch. The channel is NOT closed by
// this function; the caller closes it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Backends configured with stream_options.include_usage send the usage
// block in a separate choices-less chunk after the finish_reason chunk.
// The parser holds the finish until the usage chunk, the [DONE]
// sentinel, or EOF, so EventFinish is emitted exactly once and carries
// the usage when the backend reported one.
//
// Malformed chunks are logged and skipped. Context cancellation stops
// reading immediately without emitting further events.
func ParseSSEStream(ctx context.Context, body io.Reader, ch chan<- Event) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxSSELineSize)

	var pendingFinish *Event

	emitPending := func() {
		if pendingFinish != nil {
			ch <- *pendingFinish
			pendingFinish = nil
		}
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			emitPending()
			return
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		if len(chunk.Choices) == 0 {
			// Usage-only chunk. Attach the usage to the held finish.
			if chunk.Usage != nil {
				if pendingFinish != nil {
					pendingFinish.Usage = chunk.Usage
				} else {
					pendingFinish = &Event{
						Type:         EventFinish,
						FinishReason: "stop",
						Usage:        chunk.Usage,
					}
				}
			}
			continue
		}

		choice := chunk.Choices[0]
		delta := choice.Delta

		for _, tc := range delta.ToolCalls {
			ch <- Event{
				Type:         EventToolCallDelta,
				ToolIndex:    tc.Index,
				ToolID:       tc.ID,
				ToolName:     tc.Function.Name,
				ArgsFragment: tc.Function.Arguments,
			}
		}

		if delta.Content != nil && *delta.Content != "" {
			ch <- Event{Type: EventTextDelta, Text: *delta.Content}
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			pendingFinish = &Event{
				Type:         EventFinish,
				FinishReason: *choice.FinishReason,
				Usage:        chunk.Usage,
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		ch <- Event{
			Type: EventError,
			Err:  api.NewBackendTransportError("stream read error: %s", err.Error()),
		}
		return
	}

	// EOF without [DONE]. Some backends just close the connection.
	emitPending()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
