package openai

// EventType discriminates streaming events produced by the SSE parser.
type EventType int

const (
	// EventTextDelta carries an incremental piece of answer text.
	EventTextDelta EventType = iota
	// EventToolCallDelta carries an incremental piece of a tool call.
	// The first delta for an index carries the call ID and function
	// name; continuations carry only argument fragments.
	EventToolCallDelta
	// EventFinish is the terminal event of a successful stream. It
	// carries the finish reason and, when the backend reported it, the
	// usage block. At most one EventFinish is emitted per stream.
	EventFinish
	// EventError is the terminal event of a failed stream.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text_delta"
	case EventToolCallDelta:
		return "tool_call_delta"
	case EventFinish:
		return "finish"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one unit of a streaming backend response.
type Event struct {
	Type EventType

	// Text is set for EventTextDelta.
	Text string

	// Tool call fields, set for EventToolCallDelta.
	ToolIndex    int
	ToolID       string
	ToolName     string
	ArgsFragment string

	// FinishReason and Usage are set for EventFinish. Usage is nil when
	// the backend reported none.
	FinishReason string
	Usage        *ChatUsage

	// Err is set for EventError.
	Err error
}
