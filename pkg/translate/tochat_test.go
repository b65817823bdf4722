package translate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/model"
)

func TestToChatBasic(t *testing.T) {
	temp := 0.5
	req := &model.Request{
		System: "be nice",
		Turns: []model.Turn{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart("hi")}},
		},
		Config: model.Config{Temperature: &temp, StopSequences: []string{"END"}},
	}

	cr, apiErr := ToChat(req, "gpt-4o-mini")
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	if cr.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cr.Model)
	}
	if len(cr.Messages) != 2 {
		t.Fatalf("messages = %+v", cr.Messages)
	}
	if cr.Messages[0].Role != "system" || cr.Messages[0].Content != "be nice" {
		t.Errorf("system message = %+v", cr.Messages[0])
	}
	if cr.Messages[1].Role != "user" || cr.Messages[1].Content != "hi" {
		t.Errorf("user message = %+v", cr.Messages[1])
	}
	if cr.Temperature == nil || *cr.Temperature != 0.5 {
		t.Errorf("temperature = %v", cr.Temperature)
	}
	if len(cr.Stop) != 1 || cr.Stop[0] != "END" {
		t.Errorf("stop = %v", cr.Stop)
	}
	if cr.ToolChoice != nil {
		t.Errorf("tool_choice should be absent without tools, got %v", cr.ToolChoice)
	}
}

func TestToChatToolConversation(t *testing.T) {
	req := &model.Request{
		Turns: []model.Turn{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart("weather?")}},
			{Role: model.RoleModel, Parts: []model.Part{model.InvocationPart(model.ToolInvocation{
				CallID: "get_weather:0",
				Name:   "get_weather",
				Args:   json.RawMessage(`{"city":"Oslo"}`),
			})}},
			{Role: model.RoleTool, Parts: []model.Part{model.ResultPart(model.ToolResult{
				CallID:   "get_weather:0",
				Name:     "get_weather",
				Response: json.RawMessage(`{"temp":8}`),
			})}},
		},
		Tools: []model.Declaration{{
			Name:       "get_weather",
			Parameters: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
		}},
	}

	cr, apiErr := ToChat(req, "m")
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	if len(cr.Messages) != 3 {
		t.Fatalf("messages = %+v", cr.Messages)
	}

	asst := cr.Messages[1]
	if asst.Role != "assistant" || len(asst.ToolCalls) != 1 {
		t.Fatalf("assistant = %+v", asst)
	}
	if asst.ToolCalls[0].ID != "get_weather:0" || asst.ToolCalls[0].Type != "function" {
		t.Errorf("tool call = %+v", asst.ToolCalls[0])
	}

	tool := cr.Messages[2]
	if tool.Role != "tool" || tool.ToolCallID != "get_weather:0" {
		t.Errorf("tool message = %+v", tool)
	}
	if tool.Content != `{"temp":8}` {
		t.Errorf("tool content = %v", tool.Content)
	}

	if cr.ToolChoice != "auto" {
		t.Errorf("tool_choice = %v", cr.ToolChoice)
	}
	if len(cr.Tools) != 1 || cr.Tools[0].Function.Name != "get_weather" {
		t.Errorf("tools = %+v", cr.Tools)
	}
}

func TestToChatDropsUnansweredInvocation(t *testing.T) {
	// A trailing call with no result must not reach the backend.
	req := &model.Request{
		Turns: []model.Turn{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart("go")}},
			{Role: model.RoleModel, Parts: []model.Part{
				model.TextPart("calling now"),
				model.InvocationPart(model.ToolInvocation{
					CallID: "f:0", Name: "f", Args: json.RawMessage(`{}`),
				}),
			}},
		},
	}

	cr, apiErr := ToChat(req, "m")
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	asst := cr.Messages[1]
	if len(asst.ToolCalls) != 0 {
		t.Errorf("unanswered call not dropped: %+v", asst.ToolCalls)
	}
	if asst.Content != "calling now" {
		t.Errorf("text should survive: %+v", asst)
	}
}

func TestToChatDropsEmptiedAssistantMessage(t *testing.T) {
	req := &model.Request{
		Turns: []model.Turn{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart("go")}},
			{Role: model.RoleModel, Parts: []model.Part{
				model.InvocationPart(model.ToolInvocation{CallID: "f:0", Name: "f"}),
			}},
		},
	}
	cr, apiErr := ToChat(req, "m")
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	if len(cr.Messages) != 1 {
		t.Errorf("emptied assistant message not dropped: %+v", cr.Messages)
	}
}

func TestToChatImageContent(t *testing.T) {
	req := &model.Request{
		Turns: []model.Turn{
			{Role: model.RoleUser, Parts: []model.Part{
				model.TextPart("describe"),
				model.BinaryPart("image/png", []byte{1, 2, 3}),
			}},
		},
	}

	cr, apiErr := ToChat(req, "m")
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	data, err := json.Marshal(cr.Messages[0].Content)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"image_url"`) || !strings.Contains(s, "data:image/png;base64,") {
		t.Errorf("content = %s", s)
	}
	if !strings.Contains(s, `"describe"`) {
		t.Errorf("text part lost: %s", s)
	}
}

func TestToChatRejectsNonImageBinary(t *testing.T) {
	req := &model.Request{
		Turns: []model.Turn{
			{Role: model.RoleUser, Parts: []model.Part{
				model.BinaryPart("application/pdf", []byte{1}),
			}},
		},
	}
	if _, apiErr := ToChat(req, "m"); apiErr == nil {
		t.Fatal("expected error for non-image inline data")
	}
}

func TestToChatDropsTopK(t *testing.T) {
	topK := 40
	req := &model.Request{
		Turns:  []model.Turn{{Role: model.RoleUser, Parts: []model.Part{model.TextPart("x")}}},
		Config: model.Config{TopK: &topK},
	}
	cr, apiErr := ToChat(req, "m")
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	data, _ := json.Marshal(cr)
	if strings.Contains(string(data), "top_k") {
		t.Errorf("top_k leaked into backend request: %s", data)
	}
}

func TestDeclarationsToChat(t *testing.T) {
	schema := `{"type":"object","properties":{"q":{"type":"string"}}}`
	tools, apiErr := DeclarationsToChat([]model.Declaration{
		{Name: "search", Description: "find things", Parameters: json.RawMessage(schema)},
	})
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	if tools[0].Type != "function" {
		t.Errorf("type = %q", tools[0].Type)
	}
	if string(tools[0].Function.Parameters) != schema {
		t.Errorf("schema = %s", tools[0].Function.Parameters)
	}
}

func TestDeclarationsToChatRequiresNameAndSchema(t *testing.T) {
	for _, decl := range []model.Declaration{
		{Name: "no_params"},
		{Parameters: json.RawMessage(`{"type":"object"}`)},
	} {
		_, apiErr := DeclarationsToChat([]model.Declaration{decl})
		if apiErr == nil {
			t.Fatalf("expected rejection of %+v", decl)
		}
		if apiErr.Code != 400 {
			t.Errorf("code = %d", apiErr.Code)
		}
	}
}

func TestDeclarationsToChatRejectsNonObjectSchemaDocument(t *testing.T) {
	for _, params := range []string{`[1,2]`, `"string"`} {
		_, apiErr := DeclarationsToChat([]model.Declaration{
			{Name: "f", Parameters: json.RawMessage(params)},
		})
		if apiErr == nil {
			t.Errorf("expected rejection of schema %s", params)
		}
	}
}

func TestDeclarationsToChatPassesNonObjectTypedSchemaThrough(t *testing.T) {
	schema := `{"type":"array","items":{"type":"string"}}`
	tools, apiErr := DeclarationsToChat([]model.Declaration{
		{Name: "f", Parameters: json.RawMessage(schema)},
	})
	if apiErr != nil {
		t.Fatal(apiErr)
	}
	if string(tools[0].Function.Parameters) != schema {
		t.Errorf("schema = %s", tools[0].Function.Parameters)
	}
}
