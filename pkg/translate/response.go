package translate

import (
	"strings"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/usage"
)

// FromChat converts a complete backend response into the inbound
// format. promptEstimate is the estimated prompt token count, used to
// synthesize usage metadata when the backend reports none.
func FromChat(resp *openai.ChatCompletionResponse, promptEstimate int) (*api.GenerateContentResponse, *api.APIError) {
	if len(resp.Choices) == 0 {
		return nil, api.NewBackendProtocolError("backend returned no choices")
	}

	choice := resp.Choices[0]
	content := api.Content{Role: api.RoleModel}

	var completionChars int
	if text, ok := choice.Message.Content.(string); ok && text != "" {
		text = unwrapJSONFence(text)
		content.Parts = append(content.Parts, api.Part{Text: text})
		completionChars += len(text)
	}

	for _, tc := range choice.Message.ToolCalls {
		if tc.Function.Name == "" {
			return nil, api.NewBackendProtocolError("backend tool call without function name")
		}
		if !validArgs(tc.Function.Arguments) {
			return nil, api.NewBackendProtocolError(
				"backend tool call %q has malformed arguments", tc.Function.Name)
		}
		content.Parts = append(content.Parts, api.Part{
			FunctionCall: &api.FunctionCall{
				Name: tc.Function.Name,
				Args: normalizeArgs(tc.Function.Arguments),
			},
		})
		completionChars += len(tc.Function.Name) + len(tc.Function.Arguments)
	}

	out := &api.GenerateContentResponse{
		Candidates: []api.Candidate{{
			Content:      content,
			FinishReason: MapFinishReason(choice.FinishReason),
			Index:        0,
		}},
		UsageMetadata: usageMetadata(resp.Usage, promptEstimate, completionChars),
	}
	return out, nil
}

// usageMetadata maps backend usage, falling back to estimates when the
// backend reported none.
func usageMetadata(u *openai.ChatUsage, promptEstimate, completionChars int) *api.UsageMetadata {
	if u != nil {
		return &api.UsageMetadata{
			PromptTokenCount:     u.PromptTokens,
			CandidatesTokenCount: u.CompletionTokens,
			TotalTokenCount:      u.TotalTokens,
		}
	}
	var est usage.Estimator
	completion := est.Chars(completionChars)
	return &api.UsageMetadata{
		PromptTokenCount:     promptEstimate,
		CandidatesTokenCount: completion,
		TotalTokenCount:      promptEstimate + completion,
	}
}

// unwrapJSONFence strips a markdown ```json code fence wrapping the
// entire answer. Some backends fence structured output even when asked
// for bare JSON. Applied to complete responses only; the streaming path
// sees the text in fragments and passes it through untouched.
func unwrapJSONFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```json") || !strings.HasSuffix(trimmed, "```") {
		return s
	}
	inner := strings.TrimPrefix(trimmed, "```json")
	inner = strings.TrimSuffix(inner, "```")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return s
	}
	return inner
}
