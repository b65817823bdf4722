package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
)

func TestGenerateContentText(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"),
		textRequest("Hello"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var body api.GenerateContentResponse
	decodeJSON(t, resp, &body)

	if len(body.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(body.Candidates))
	}
	cand := body.Candidates[0]
	if cand.Content.Role != api.RoleModel {
		t.Errorf("expected role model, got %q", cand.Content.Role)
	}
	if len(cand.Content.Parts) != 1 || cand.Content.Parts[0].Text != "Hello from mock!" {
		t.Errorf("unexpected parts: %+v", cand.Content.Parts)
	}
	if cand.FinishReason != api.FinishStop {
		t.Errorf("expected finishReason STOP, got %q", cand.FinishReason)
	}
	if body.UsageMetadata == nil {
		t.Fatal("expected usageMetadata")
	}
	if body.UsageMetadata.PromptTokenCount != 10 ||
		body.UsageMetadata.CandidatesTokenCount != 5 ||
		body.UsageMetadata.TotalTokenCount != 15 {
		t.Errorf("unexpected usage: %+v", body.UsageMetadata)
	}
}

func TestGenerateContentMaxTokens(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"),
		textRequest("please truncate this"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var body api.GenerateContentResponse
	decodeJSON(t, resp, &body)

	if len(body.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(body.Candidates))
	}
	if got := body.Candidates[0].FinishReason; got != api.FinishMaxTokens {
		t.Errorf("expected finishReason MAX_TOKENS, got %q", got)
	}
}

func weatherTools() []map[string]any {
	return []map[string]any{
		{
			"functionDeclarations": []map[string]any{
				{
					"name":        "get_weather",
					"description": "Get the current weather for a city",
					"parameters": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"city": map[string]any{"type": "string"},
						},
						"required": []string{"city"},
					},
				},
			},
		},
	}
}

func TestGenerateContentToolCall(t *testing.T) {
	req := textRequest("What is the weather in Berlin?")
	req["tools"] = weatherTools()

	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"), req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var body api.GenerateContentResponse
	decodeJSON(t, resp, &body)

	if len(body.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(body.Candidates))
	}
	cand := body.Candidates[0]
	if len(cand.Content.Parts) != 1 || cand.Content.Parts[0].FunctionCall == nil {
		t.Fatalf("expected a single functionCall part, got %+v", cand.Content.Parts)
	}
	fc := cand.Content.Parts[0].FunctionCall
	if fc.Name != "get_weather" {
		t.Errorf("expected get_weather, got %q", fc.Name)
	}
	var args map[string]any
	if err := json.Unmarshal(fc.Args, &args); err != nil {
		t.Fatalf("decoding args: %v", err)
	}
	if args["city"] != "Berlin" {
		t.Errorf("unexpected args: %v", args)
	}
	// Tool calls surface as parts, not through the finish reason.
	if cand.FinishReason != api.FinishStop {
		t.Errorf("expected finishReason STOP, got %q", cand.FinishReason)
	}
}

func TestGenerateContentToolResult(t *testing.T) {
	req := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]any{{"text": "What is the weather in Berlin?"}},
			},
			{
				"role": "model",
				"parts": []map[string]any{
					{"functionCall": map[string]any{
						"name": "get_weather",
						"args": map[string]any{"city": "Berlin"},
					}},
				},
			},
			{
				"role": "user",
				"parts": []map[string]any{
					{"functionResponse": map[string]any{
						"name":     "get_weather",
						"response": map[string]any{"temperature": 18, "condition": "sunny"},
					}},
				},
			},
		},
		"tools": weatherTools(),
	}

	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"), req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var body api.GenerateContentResponse
	decodeJSON(t, resp, &body)

	if len(body.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(body.Candidates))
	}
	parts := body.Candidates[0].Content.Parts
	if len(parts) != 1 || parts[0].Text != "The weather in Berlin is 18 degrees." {
		t.Errorf("unexpected parts: %+v", parts)
	}
}

func TestGenerateContentSystemInstruction(t *testing.T) {
	req := textRequest("Hello")
	req["systemInstruction"] = map[string]any{
		"parts": []map[string]any{{"text": "You are a helpful assistant."}},
	}

	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"), req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var body api.GenerateContentResponse
	decodeJSON(t, resp, &body)
	if len(body.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(body.Candidates))
	}
}

func TestGenerateContentUnwrapsJSONFence(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"),
		textRequest("Give me the answer as json"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var body api.GenerateContentResponse
	decodeJSON(t, resp, &body)
	if len(body.Candidates) != 1 || len(body.Candidates[0].Content.Parts) != 1 {
		t.Fatalf("unexpected response shape: %+v", body)
	}
	if got := body.Candidates[0].Content.Parts[0].Text; got != `{"answer": 42}` {
		t.Errorf("expected unwrapped JSON, got %q", got)
	}
}

func TestCountTokens(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "countTokens"),
		textRequest("Count the tokens in this sentence, please."))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var body api.CountTokensResponse
	decodeJSON(t, resp, &body)
	if body.TotalTokens <= 0 {
		t.Errorf("expected a positive token count, got %d", body.TotalTokens)
	}
}

func TestCountTokensNeverReachesBackend(t *testing.T) {
	// The text would otherwise trigger a backend failure.
	resp := postJSON(t, modelURL("gemini-2.0-flash", "countTokens"),
		textRequest("fail with 429"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var body api.CountTokensResponse
	decodeJSON(t, resp, &body)
	if body.TotalTokens <= 0 {
		t.Errorf("expected a positive token count, got %d", body.TotalTokens)
	}
}
