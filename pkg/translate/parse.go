package translate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/model"
)

// Parse converts a validated inbound request into the content model.
//
// The inbound protocol has no tool role and no call IDs: function
// responses ride in user-role contents, and calls are correlated with
// responses by function name alone. Parse splits those contents into
// separate user and tool turns and synthesizes deterministic call IDs
// of the form "name:ordinal", matching each response to the oldest
// unanswered call of the same name.
func Parse(req *api.GenerateContentRequest) (*model.Request, *api.APIError) {
	out := &model.Request{}

	if req.SystemInstruction != nil {
		var texts []string
		for _, p := range req.SystemInstruction.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		out.System = strings.Join(texts, "\n\n")
	}

	// Unanswered call IDs per function name, oldest first.
	pending := make(map[string][]string)
	// Total calls seen per function name, for ordinal synthesis.
	ordinals := make(map[string]int)

	for i, content := range req.Contents {
		switch content.Role {
		case api.RoleUser:
			turns, err := parseUserContent(i, content, pending)
			if err != nil {
				return nil, err
			}
			out.Turns = append(out.Turns, turns...)

		case api.RoleModel:
			turn, err := parseModelContent(i, content, pending, ordinals)
			if err != nil {
				return nil, err
			}
			out.Turns = append(out.Turns, turn)

		default:
			return nil, api.NewMalformedRequestError("contents[%d]: unsupported role %q", i, content.Role)
		}
	}

	if req.GenerationConfig != nil {
		out.Config = model.Config{
			Temperature:     req.GenerationConfig.Temperature,
			TopP:            req.GenerationConfig.TopP,
			TopK:            req.GenerationConfig.TopK,
			MaxOutputTokens: req.GenerationConfig.MaxOutputTokens,
			StopSequences:   req.GenerationConfig.StopSequences,
		}
	}

	for _, t := range req.Tools {
		for _, d := range t.FunctionDeclarations {
			out.Tools = append(out.Tools, model.Declaration{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			})
		}
	}

	if err := out.Validate(); err != nil {
		return nil, api.NewMalformedRequestError("invalid conversation: %s", err.Error())
	}

	return out, nil
}

// parseUserContent splits one user-role content into a user turn and,
// when it carries function responses, a following tool turn.
func parseUserContent(idx int, content api.Content, pending map[string][]string) ([]model.Turn, *api.APIError) {
	var userParts []model.Part
	var toolParts []model.Part

	for j, p := range content.Parts {
		switch {
		case p.Text != "":
			userParts = append(userParts, model.TextPart(p.Text))

		case p.InlineData != nil:
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, api.NewMalformedRequestError(
					"contents[%d].parts[%d]: inlineData is not valid base64", idx, j)
			}
			userParts = append(userParts, model.BinaryPart(p.InlineData.MIMEType, data))

		case p.FunctionResponse != nil:
			name := p.FunctionResponse.Name
			ids := pending[name]
			if len(ids) == 0 {
				return nil, api.NewMalformedRequestError(
					"contents[%d].parts[%d]: functionResponse for %q has no matching functionCall",
					idx, j, name)
			}
			pending[name] = ids[1:]
			toolParts = append(toolParts, model.ResultPart(model.ToolResult{
				CallID:   ids[0],
				Name:     name,
				Response: p.FunctionResponse.Response,
			}))

		case p.FunctionCall != nil:
			return nil, api.NewMalformedRequestError(
				"contents[%d].parts[%d]: functionCall in user content", idx, j)
		}
	}

	var turns []model.Turn
	if len(userParts) > 0 {
		turns = append(turns, model.Turn{Role: model.RoleUser, Parts: userParts})
	}
	if len(toolParts) > 0 {
		turns = append(turns, model.Turn{Role: model.RoleTool, Parts: toolParts})
	}
	return turns, nil
}

func parseModelContent(idx int, content api.Content, pending map[string][]string, ordinals map[string]int) (model.Turn, *api.APIError) {
	turn := model.Turn{Role: model.RoleModel}

	for j, p := range content.Parts {
		switch {
		case p.Text != "":
			turn.Parts = append(turn.Parts, model.TextPart(p.Text))

		case p.FunctionCall != nil:
			name := p.FunctionCall.Name
			callID := fmt.Sprintf("%s:%d", name, ordinals[name])
			ordinals[name]++
			pending[name] = append(pending[name], callID)
			turn.Parts = append(turn.Parts, model.InvocationPart(model.ToolInvocation{
				CallID: callID,
				Name:   name,
				Args:   p.FunctionCall.Args,
			}))

		case p.FunctionResponse != nil:
			return model.Turn{}, api.NewMalformedRequestError(
				"contents[%d].parts[%d]: functionResponse in model content", idx, j)

		case p.InlineData != nil:
			return model.Turn{}, api.NewMalformedRequestError(
				"contents[%d].parts[%d]: inlineData in model content", idx, j)
		}
	}

	return turn, nil
}
