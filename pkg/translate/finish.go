package translate

import (
	"log/slog"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
)

// MapFinishReason converts a Chat Completions finish_reason to the
// inbound protocol's finish vocabulary. Tool calls are a normal stop:
// the protocol signals them through functionCall parts, not the finish
// reason.
func MapFinishReason(reason string) string {
	switch reason {
	case "stop":
		return api.FinishStop
	case "length":
		return api.FinishMaxTokens
	case "content_filter":
		return api.FinishSafety
	case "tool_calls", "function_call":
		return api.FinishStop
	case "":
		return api.FinishStop
	default:
		slog.Warn("unknown finish_reason, treating as stop", "finish_reason", reason)
		return api.FinishStop
	}
}
