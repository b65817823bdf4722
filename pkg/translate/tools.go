package translate

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/model"
)

// DeclarationsToChat converts function declarations to the backend's
// tool format. A declaration must carry a name and a parameters schema;
// the schema document must be a JSON object, but its content is passed
// through opaquely. The backend judges whether the schema is sensible.
func DeclarationsToChat(decls []model.Declaration) ([]openai.ChatTool, *api.APIError) {
	tools := make([]openai.ChatTool, 0, len(decls))
	for _, d := range decls {
		if d.Name == "" {
			return nil, api.NewUnsupportedToolShapeError("function declaration has no name")
		}
		if len(d.Parameters) == 0 {
			return nil, api.NewUnsupportedToolShapeError(
				"function %q: parameters schema is required", d.Name)
		}
		if !gjson.ParseBytes(d.Parameters).IsObject() {
			return nil, api.NewUnsupportedToolShapeError(
				"function %q: parameters must be a JSON schema object", d.Name)
		}
		tools = append(tools, openai.ChatTool{
			Type: "function",
			Function: openai.ChatFunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools, nil
}

// validArgs reports whether a tool call's accumulated argument string
// is a complete JSON object. Empty arguments count as valid, for
// functions called without parameters.
func validArgs(args string) bool {
	if args == "" {
		return true
	}
	return gjson.Valid(args) && gjson.Parse(args).IsObject()
}

// normalizeArgs returns args as a JSON object, substituting the empty
// object for empty input.
func normalizeArgs(args string) json.RawMessage {
	if args == "" {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(args)
}
