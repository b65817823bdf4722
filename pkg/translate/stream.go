package translate

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/debug"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/usage"
)

// toolCallBuffer accumulates the fragments of one streamed tool call.
type toolCallBuffer struct {
	ID   string
	Name string
	Args strings.Builder
}

// StreamTranscoder converts a stream of backend events into frames of
// the inbound protocol. It is a deterministic step function: the frames
// produced depend only on the sequence of events fed to Transcode, so
// replaying a recorded event stream reproduces the frame stream.
//
// Text deltas pass through immediately. Tool call fragments are held
// until the finish event, because the inbound protocol has no notion of
// a partial function call: the re-assembled calls are emitted in
// ascending index order in the final frame.
//
// A transcoder is used by a single goroutine and is not safe for
// concurrent use.
type StreamTranscoder struct {
	promptEstimate  int
	est             usage.Estimator
	tools           map[int]*toolCallBuffer
	completionChars int
	finished        bool
}

// NewStreamTranscoder creates a transcoder. promptEstimate seeds the
// synthesized usage metadata when the backend reports none.
func NewStreamTranscoder(promptEstimate int) *StreamTranscoder {
	return &StreamTranscoder{
		promptEstimate: promptEstimate,
		tools:          make(map[int]*toolCallBuffer),
	}
}

// Finished reports whether a terminal frame (finish or error) has been
// produced. Events after that are ignored.
func (t *StreamTranscoder) Finished() bool {
	return t.finished
}

// Transcode consumes one backend event and returns the frames to send,
// possibly none.
func (t *StreamTranscoder) Transcode(ev openai.Event) []api.StreamFrame {
	if t.finished {
		return nil
	}

	switch ev.Type {
	case openai.EventTextDelta:
		t.completionChars += len(ev.Text)
		return []api.StreamFrame{textFrame(ev.Text)}

	case openai.EventToolCallDelta:
		buf, ok := t.tools[ev.ToolIndex]
		if !ok {
			buf = &toolCallBuffer{ID: ev.ToolID, Name: ev.ToolName}
			t.tools[ev.ToolIndex] = buf
		}
		if buf.Name == "" && ev.ToolName != "" {
			buf.Name = ev.ToolName
		}
		buf.Args.WriteString(ev.ArgsFragment)
		debug.Log("streaming", "buffered tool call fragment",
			"index", ev.ToolIndex, "function", buf.Name, "fragment_len", len(ev.ArgsFragment))
		return nil

	case openai.EventFinish:
		t.finished = true
		return []api.StreamFrame{t.finalFrame(ev)}

	case openai.EventError:
		t.finished = true
		return []api.StreamFrame{{Error: api.AsAPIError(ev.Err)}}

	default:
		return nil
	}
}

// Close handles the end of the event stream. A stream that ends without
// a terminal event was cut off; the client gets a terminal error frame
// so it can distinguish truncation from completion.
func (t *StreamTranscoder) Close() []api.StreamFrame {
	if t.finished {
		return nil
	}
	t.finished = true
	return []api.StreamFrame{{
		Error: api.NewBackendTransportError("backend stream ended unexpectedly"),
	}}
}

func textFrame(text string) api.StreamFrame {
	return api.StreamFrame{Response: &api.GenerateContentResponse{
		Candidates: []api.Candidate{{
			Content: api.Content{
				Role:  api.RoleModel,
				Parts: []api.Part{{Text: text}},
			},
			Index: 0,
		}},
	}}
}

// finalFrame flushes buffered tool calls and carries the finish reason
// and usage metadata.
func (t *StreamTranscoder) finalFrame(ev openai.Event) api.StreamFrame {
	content := api.Content{Role: api.RoleModel}

	indexes := make([]int, 0, len(t.tools))
	for idx := range t.tools {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		buf := t.tools[idx]
		args := buf.Args.String()
		if buf.Name == "" || !validArgs(args) {
			slog.Warn("dropping re-assembled tool call with unusable payload",
				"index", idx,
				"function", buf.Name,
				"args_len", len(args),
			)
			continue
		}
		content.Parts = append(content.Parts, api.Part{
			FunctionCall: &api.FunctionCall{
				Name: buf.Name,
				Args: normalizeArgs(args),
			},
		})
		t.completionChars += len(buf.Name) + len(args)
	}

	var meta *api.UsageMetadata
	if ev.Usage != nil {
		meta = &api.UsageMetadata{
			PromptTokenCount:     ev.Usage.PromptTokens,
			CandidatesTokenCount: ev.Usage.CompletionTokens,
			TotalTokenCount:      ev.Usage.TotalTokens,
		}
	} else {
		completion := t.est.Chars(t.completionChars)
		meta = &api.UsageMetadata{
			PromptTokenCount:     t.promptEstimate,
			CandidatesTokenCount: completion,
			TotalTokenCount:      t.promptEstimate + completion,
		}
	}

	return api.StreamFrame{Response: &api.GenerateContentResponse{
		Candidates: []api.Candidate{{
			Content:      content,
			FinishReason: MapFinishReason(ev.FinishReason),
			Index:        0,
		}},
		UsageMetadata: meta,
	}}
}
