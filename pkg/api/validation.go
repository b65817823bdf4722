package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxContents       int
	MaxPartsPerTurn   int
	MaxTools          int
	MaxInlineDataSize int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxContents:       1000,
		MaxPartsPerTurn:   256,
		MaxTools:          128,
		MaxInlineDataSize: 20 * 1024 * 1024, // base64 characters
	}
}

// ValidateGenerateRequest checks a GenerateContentRequest for structural
// validity. It returns an *APIError describing the first violation, or
// nil if the request is valid.
func ValidateGenerateRequest(req *GenerateContentRequest, cfg ValidationConfig) *APIError {
	if len(req.Contents) == 0 {
		return NewMalformedRequestError("contents must contain at least one entry")
	}

	if cfg.MaxContents > 0 && len(req.Contents) > cfg.MaxContents {
		return NewMalformedRequestError("contents exceeds maximum of %d entries", cfg.MaxContents)
	}

	if cfg.MaxTools > 0 {
		var n int
		for _, t := range req.Tools {
			n += len(t.FunctionDeclarations)
		}
		if n > cfg.MaxTools {
			return NewMalformedRequestError("tool declarations exceed maximum of %d", cfg.MaxTools)
		}
	}

	for i, c := range req.Contents {
		if c.Role != RoleUser && c.Role != RoleModel {
			return NewMalformedRequestError("contents[%d]: role must be %q or %q, got %q",
				i, RoleUser, RoleModel, c.Role)
		}
		if len(c.Parts) == 0 {
			return NewMalformedRequestError("contents[%d]: parts must contain at least one entry", i)
		}
		if cfg.MaxPartsPerTurn > 0 && len(c.Parts) > cfg.MaxPartsPerTurn {
			return NewMalformedRequestError("contents[%d]: parts exceed maximum of %d",
				i, cfg.MaxPartsPerTurn)
		}
		for j, p := range c.Parts {
			if err := validatePart(p, cfg); err != nil {
				return NewMalformedRequestError("contents[%d].parts[%d]: %s", i, j, err)
			}
		}
	}

	if req.SystemInstruction != nil {
		for j, p := range req.SystemInstruction.Parts {
			if p.Text == "" && p.InlineData == nil && p.FunctionCall == nil && p.FunctionResponse == nil {
				return NewMalformedRequestError("systemInstruction.parts[%d]: empty part", j)
			}
		}
	}

	if gc := req.GenerationConfig; gc != nil {
		if gc.Temperature != nil && (*gc.Temperature < 0.0 || *gc.Temperature > 2.0) {
			return NewMalformedRequestError("generationConfig.temperature must be between 0.0 and 2.0")
		}
		if gc.TopP != nil && (*gc.TopP < 0.0 || *gc.TopP > 1.0) {
			return NewMalformedRequestError("generationConfig.topP must be between 0.0 and 1.0")
		}
		if gc.MaxOutputTokens != nil && *gc.MaxOutputTokens <= 0 {
			return NewMalformedRequestError("generationConfig.maxOutputTokens must be positive")
		}
	}

	for i, t := range req.Tools {
		for j, d := range t.FunctionDeclarations {
			if d.Name == "" {
				return NewMalformedRequestError("tools[%d].functionDeclarations[%d]: name is required", i, j)
			}
		}
	}

	return nil
}

func validatePart(p Part, cfg ValidationConfig) error {
	var set int
	if p.Text != "" {
		set++
	}
	if p.InlineData != nil {
		set++
	}
	if p.FunctionCall != nil {
		set++
	}
	if p.FunctionResponse != nil {
		set++
	}
	if set == 0 {
		return fmt.Errorf("part has no recognized content")
	}
	if set > 1 {
		return fmt.Errorf("part sets more than one content variant")
	}
	if p.InlineData != nil {
		if p.InlineData.MIMEType == "" {
			return fmt.Errorf("inlineData.mimeType is required")
		}
		if cfg.MaxInlineDataSize > 0 && len(p.InlineData.Data) > cfg.MaxInlineDataSize {
			return fmt.Errorf("inlineData exceeds maximum size")
		}
	}
	if p.FunctionCall != nil && p.FunctionCall.Name == "" {
		return fmt.Errorf("functionCall.name is required")
	}
	if p.FunctionResponse != nil && p.FunctionResponse.Name == "" {
		return fmt.Errorf("functionResponse.name is required")
	}
	return nil
}
