package translate

import (
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/model"
)

// ToChat renders a parsed request as a Chat Completions request for the
// given backend model.
//
// Tool invocations that never received a result are dropped: the
// backend rejects assistant tool calls with no following tool message,
// and the inbound protocol routinely resends the call part of a history
// whose result the client never attached.
func ToChat(req *model.Request, backendModel string) (*openai.ChatCompletionRequest, *api.APIError) {
	cr := &openai.ChatCompletionRequest{
		Model:       backendModel,
		Temperature: req.Config.Temperature,
		TopP:        req.Config.TopP,
		MaxTokens:   req.Config.MaxOutputTokens,
		Stop:        req.Config.StopSequences,
	}

	// The backend has no top_k parameter.
	if req.Config.TopK != nil {
		slog.Debug("dropping topK, backend does not support it")
	}

	if req.System != "" {
		cr.Messages = append(cr.Messages, openai.ChatMessage{
			Role:    "system",
			Content: req.System,
		})
	}

	answered := answeredCalls(req)

	for _, turn := range req.Turns {
		switch turn.Role {
		case model.RoleUser:
			msg, err := userMessage(turn)
			if err != nil {
				return nil, err
			}
			cr.Messages = append(cr.Messages, msg)

		case model.RoleModel:
			msg, keep := assistantMessage(turn, answered)
			if keep {
				cr.Messages = append(cr.Messages, msg)
			}

		case model.RoleTool:
			for _, p := range turn.Parts {
				if p.Kind != model.KindToolResult {
					continue
				}
				cr.Messages = append(cr.Messages, openai.ChatMessage{
					Role:       "tool",
					ToolCallID: p.Result.CallID,
					Name:       p.Result.Name,
					Content:    string(p.Result.Response),
				})
			}
		}
	}

	if len(req.Tools) > 0 {
		tools, err := DeclarationsToChat(req.Tools)
		if err != nil {
			return nil, err
		}
		cr.Tools = tools
		cr.ToolChoice = "auto"
	}

	return cr, nil
}

// answeredCalls collects the call IDs that have a tool result somewhere
// in the conversation.
func answeredCalls(req *model.Request) map[string]bool {
	answered := make(map[string]bool)
	for _, turn := range req.Turns {
		if turn.Role != model.RoleTool {
			continue
		}
		for _, p := range turn.Parts {
			if p.Kind == model.KindToolResult {
				answered[p.Result.CallID] = true
			}
		}
	}
	return answered
}

func userMessage(turn model.Turn) (openai.ChatMessage, *api.APIError) {
	var hasBinary bool
	for _, p := range turn.Parts {
		if p.Kind == model.KindBinary {
			hasBinary = true
			break
		}
	}

	if !hasBinary {
		var texts []string
		for _, p := range turn.Parts {
			if p.Kind == model.KindText {
				texts = append(texts, p.Text)
			}
		}
		return openai.ChatMessage{Role: "user", Content: strings.Join(texts, "\n")}, nil
	}

	var parts []openai.ChatContentPart
	for _, p := range turn.Parts {
		switch p.Kind {
		case model.KindText:
			parts = append(parts, openai.ChatContentPart{Type: "text", Text: p.Text})
		case model.KindBinary:
			if !strings.HasPrefix(p.Binary.MIMEType, "image/") {
				return openai.ChatMessage{}, api.NewMalformedRequestError(
					"inline data of type %q is not supported", p.Binary.MIMEType)
			}
			uri := "data:" + p.Binary.MIMEType + ";base64," +
				base64.StdEncoding.EncodeToString(p.Binary.Data)
			parts = append(parts, openai.ChatContentPart{
				Type:     "image_url",
				ImageURL: &openai.ChatImageURL{URL: uri},
			})
		}
	}
	return openai.ChatMessage{Role: "user", Content: parts}, nil
}

// assistantMessage renders a model turn. keep is false when dropping
// unanswered invocations left the message empty.
func assistantMessage(turn model.Turn, answered map[string]bool) (openai.ChatMessage, bool) {
	var text strings.Builder
	var calls []openai.ChatToolCall

	for _, p := range turn.Parts {
		switch p.Kind {
		case model.KindText:
			text.WriteString(p.Text)
		case model.KindToolInvocation:
			if !answered[p.Invocation.CallID] {
				slog.Debug("dropping unanswered tool invocation",
					"call_id", p.Invocation.CallID,
					"function", p.Invocation.Name,
				)
				continue
			}
			args := string(p.Invocation.Args)
			if args == "" {
				args = "{}"
			}
			calls = append(calls, openai.ChatToolCall{
				ID:   p.Invocation.CallID,
				Type: "function",
				Function: openai.ChatFunctionCall{
					Name:      p.Invocation.Name,
					Arguments: args,
				},
			})
		}
	}

	if text.Len() == 0 && len(calls) == 0 {
		return openai.ChatMessage{}, false
	}

	msg := openai.ChatMessage{Role: "assistant", ToolCalls: calls}
	if text.Len() > 0 {
		msg.Content = text.String()
	}
	return msg, true
}
