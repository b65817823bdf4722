package translate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
)

func transcodeAll(t *StreamTranscoder, events []openai.Event) []api.StreamFrame {
	var frames []api.StreamFrame
	for _, ev := range events {
		frames = append(frames, t.Transcode(ev)...)
	}
	frames = append(frames, t.Close()...)
	return frames
}

func TestStreamTranscoderText(t *testing.T) {
	tr := NewStreamTranscoder(4)
	frames := transcodeAll(tr, []openai.Event{
		{Type: openai.EventTextDelta, Text: "Hel"},
		{Type: openai.EventTextDelta, Text: "lo"},
		{Type: openai.EventFinish, FinishReason: "stop",
			Usage: &openai.ChatUsage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6}},
	})

	if len(frames) != 3 {
		t.Fatalf("got %d frames: %+v", len(frames), frames)
	}
	if frames[0].Response.Candidates[0].Content.Parts[0].Text != "Hel" {
		t.Errorf("frame 0 = %+v", frames[0])
	}
	last := frames[2].Response
	if last.Candidates[0].FinishReason != api.FinishStop {
		t.Errorf("final frame = %+v", last)
	}
	if last.UsageMetadata == nil || last.UsageMetadata.TotalTokenCount != 6 {
		t.Errorf("usage = %+v", last.UsageMetadata)
	}
	if !tr.Finished() {
		t.Error("transcoder should be finished")
	}
}

func TestStreamTranscoderToolCallsFlushInIndexOrder(t *testing.T) {
	tr := NewStreamTranscoder(0)
	frames := transcodeAll(tr, []openai.Event{
		// Interleaved fragments of two calls, second index first.
		{Type: openai.EventToolCallDelta, ToolIndex: 1, ToolID: "c1", ToolName: "second"},
		{Type: openai.EventToolCallDelta, ToolIndex: 0, ToolID: "c0", ToolName: "first"},
		{Type: openai.EventToolCallDelta, ToolIndex: 1, ArgsFragment: `{"b"`},
		{Type: openai.EventToolCallDelta, ToolIndex: 0, ArgsFragment: `{"a":1}`},
		{Type: openai.EventToolCallDelta, ToolIndex: 1, ArgsFragment: `:2}`},
		{Type: openai.EventFinish, FinishReason: "tool_calls"},
	})

	// Fragments produce no frames; everything arrives in the final one.
	if len(frames) != 1 {
		t.Fatalf("got %d frames: %+v", len(frames), frames)
	}
	parts := frames[0].Response.Candidates[0].Content.Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[0].FunctionCall.Name != "first" || parts[1].FunctionCall.Name != "second" {
		t.Errorf("flush order wrong: %q, %q",
			parts[0].FunctionCall.Name, parts[1].FunctionCall.Name)
	}
	if string(parts[1].FunctionCall.Args) != `{"b":2}` {
		t.Errorf("re-assembled args = %s", parts[1].FunctionCall.Args)
	}
	if frames[0].Response.Candidates[0].FinishReason != api.FinishStop {
		t.Errorf("finish = %q", frames[0].Response.Candidates[0].FinishReason)
	}
}

func TestStreamTranscoderDropsUnparsableToolCall(t *testing.T) {
	tr := NewStreamTranscoder(0)
	frames := transcodeAll(tr, []openai.Event{
		{Type: openai.EventToolCallDelta, ToolIndex: 0, ToolID: "c0", ToolName: "good", ArgsFragment: `{}`},
		{Type: openai.EventToolCallDelta, ToolIndex: 1, ToolID: "c1", ToolName: "bad", ArgsFragment: `{"x":`},
		{Type: openai.EventFinish, FinishReason: "tool_calls"},
	})

	parts := frames[0].Response.Candidates[0].Content.Parts
	if len(parts) != 1 || parts[0].FunctionCall.Name != "good" {
		t.Errorf("parts = %+v", parts)
	}
}

func TestStreamTranscoderErrorFrameOnce(t *testing.T) {
	tr := NewStreamTranscoder(0)
	frames := transcodeAll(tr, []openai.Event{
		{Type: openai.EventTextDelta, Text: "par"},
		{Type: openai.EventError, Err: errors.New("boom")},
		// Anything after the terminal event is ignored.
		{Type: openai.EventTextDelta, Text: "tial"},
		{Type: openai.EventFinish, FinishReason: "stop"},
	})

	var errFrames, finishFrames int
	for _, f := range frames {
		if f.Error != nil {
			errFrames++
		} else if f.Response.Candidates[0].FinishReason != "" {
			finishFrames++
		}
	}
	if errFrames != 1 {
		t.Errorf("expected exactly one error frame, got %d", errFrames)
	}
	if finishFrames != 0 {
		t.Errorf("no finish frame may follow an error frame, got %d", finishFrames)
	}
}

func TestStreamTranscoderTruncatedStream(t *testing.T) {
	tr := NewStreamTranscoder(0)
	frames := transcodeAll(tr, []openai.Event{
		{Type: openai.EventTextDelta, Text: "unfini"},
	})

	last := frames[len(frames)-1]
	if last.Error == nil || last.Error.Status != api.StatusUnavailable {
		t.Fatalf("expected transport error frame, got %+v", last)
	}
}

func TestStreamTranscoderCloseAfterFinishIsSilent(t *testing.T) {
	tr := NewStreamTranscoder(0)
	tr.Transcode(openai.Event{Type: openai.EventFinish, FinishReason: "stop"})
	if extra := tr.Close(); extra != nil {
		t.Errorf("Close after finish emitted %+v", extra)
	}
}

func TestStreamTranscoderSynthesizedUsage(t *testing.T) {
	tr := NewStreamTranscoder(10)
	frames := transcodeAll(tr, []openai.Event{
		{Type: openai.EventTextDelta, Text: "12345678"}, // 8 chars -> 2 tokens
		{Type: openai.EventFinish, FinishReason: "stop"},
	})
	meta := frames[1].Response.UsageMetadata
	want := &api.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 2, TotalTokenCount: 12}
	if !reflect.DeepEqual(meta, want) {
		t.Errorf("usage = %+v, want %+v", meta, want)
	}
}

func TestStreamTranscoderDeterministicReplay(t *testing.T) {
	events := []openai.Event{
		{Type: openai.EventTextDelta, Text: "a"},
		{Type: openai.EventToolCallDelta, ToolIndex: 0, ToolID: "c", ToolName: "f", ArgsFragment: `{"k":1}`},
		{Type: openai.EventTextDelta, Text: "b"},
		{Type: openai.EventFinish, FinishReason: "length"},
	}
	first := transcodeAll(NewStreamTranscoder(7), events)
	second := transcodeAll(NewStreamTranscoder(7), events)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("replay diverged:\n%+v\n%+v", first, second)
	}
}
