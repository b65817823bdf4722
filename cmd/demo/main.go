// Command demo walks through the gateway's translation pipeline without
// a network: it parses a Gemini request, renders the Chat Completions
// request that would go upstream, and replays a recorded stream through
// the transcoder.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/translate"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/usage"
)

func main() {
	fmt.Println("=== gateway translation demo ===")
	fmt.Println()

	// 1. A Gemini generateContent request with a tool declaration.
	req := &api.GenerateContentRequest{
		Contents: []api.Content{
			{Role: api.RoleUser, Parts: []api.Part{{Text: "What's the weather in Berlin?"}}},
		},
		Tools: []api.Tool{{
			FunctionDeclarations: []api.FunctionDeclaration{{
				Name:        "get_weather",
				Description: "Look up current weather",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
			}},
		}},
	}

	if apiErr := api.ValidateGenerateRequest(req, api.DefaultValidationConfig()); apiErr != nil {
		fmt.Printf("validation FAILED: %v\n", apiErr)
		return
	}
	fmt.Println("[1] Request validated")

	// 2. Parse into the internal representation.
	mreq, apiErr := translate.Parse(req)
	if apiErr != nil {
		fmt.Printf("parse FAILED: %v\n", apiErr)
		return
	}
	fmt.Printf("[2] Parsed %d turn(s), %d tool declaration(s)\n", len(mreq.Turns), len(mreq.Tools))

	var est usage.Estimator
	promptEstimate := est.Request(mreq)
	fmt.Printf("[3] Estimated prompt tokens: %d\n", promptEstimate)

	// 3. Render the upstream Chat Completions request.
	chatReq, apiErr := translate.ToChat(mreq, "backend-model")
	if apiErr != nil {
		fmt.Printf("translation FAILED: %v\n", apiErr)
		return
	}
	data, _ := json.MarshalIndent(chatReq, "", "  ")
	fmt.Printf("\n[4] Upstream request:\n%s\n", data)

	// 4. Replay a recorded backend stream through the transcoder.
	events := []openai.Event{
		{Type: openai.EventToolCallDelta, ToolIndex: 0, ToolID: "call_1", ToolName: "get_weather", ArgsFragment: `{"city":`},
		{Type: openai.EventToolCallDelta, ToolIndex: 0, ArgsFragment: `"Berlin"}`},
		{Type: openai.EventFinish, FinishReason: "tool_calls",
			Usage: &openai.ChatUsage{PromptTokens: 21, CompletionTokens: 9, TotalTokens: 30}},
	}

	fmt.Println("\n[5] Streaming frames:")
	tr := translate.NewStreamTranscoder(promptEstimate)
	for _, ev := range events {
		for _, frame := range tr.Transcode(ev) {
			out, _ := json.Marshal(frame)
			fmt.Printf("    data: %s\n", out)
		}
	}
	for _, frame := range tr.Close() {
		out, _ := json.Marshal(frame)
		fmt.Printf("    data: %s\n", out)
	}

	fmt.Println("\nDone.")
}
