package api

import "encoding/json"

// GenerateContentRequest is the request body for the generateContent,
// streamGenerateContent, and countTokens operations.
//
// The model is normally part of the URL path ("/v1beta/models/{model}:...").
// A model field in the body takes precedence when present.
type GenerateContentRequest struct {
	Model             string            `json:"model,omitempty"`
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

// Content is one role-attributed turn of the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one typed content unit within a turn. Exactly one of the
// variant fields must be populated; a part with no recognized variant
// is rejected as malformed.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Blob carries inline binary data, base64-encoded on the wire.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a model-initiated tool invocation.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse carries the result of a tool invocation back to the model.
type FunctionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response,omitempty"`
}

// GenerationConfig holds sampling parameters. Absent fields take backend
// defaults; the gateway never invents values for them.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// Tool wraps a set of function declarations.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
}

// FunctionDeclaration describes one callable function. The parameters
// schema is treated as opaque JSON and passed through unchanged.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// GenerateContentResponse is the complete (or, during streaming, partial)
// response returned to the client.
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate is one generated alternative. The gateway always produces
// exactly one candidate per response.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
	Index        int     `json:"index"`
}

// UsageMetadata reports token accounting for a response. Values may be
// estimates when the backend supplies no usage block.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// CountTokensResponse is the body returned by the countTokens operation.
type CountTokensResponse struct {
	TotalTokens int `json:"totalTokens"`
}

// Finish reasons in the inbound protocol's vocabulary.
const (
	FinishStop      = "STOP"
	FinishMaxTokens = "MAX_TOKENS"
	FinishSafety    = "SAFETY"
)

// Conversation roles in the inbound protocol's vocabulary.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// StreamFrame is one server-sent frame of a streaming generation.
// Exactly one of Response or Error is set. Error frames give the client
// a well-defined terminal signal instead of a bare connection close.
type StreamFrame struct {
	Response *GenerateContentResponse
	Error    *APIError
}

// MarshalJSON encodes the frame as either a partial response or an
// error envelope, matching the shapes a non-streaming client would see.
func (f StreamFrame) MarshalJSON() ([]byte, error) {
	if f.Error != nil {
		return json.Marshal(ErrorResponse{Error: f.Error})
	}
	return json.Marshal(f.Response)
}
