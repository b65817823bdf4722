package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
)

// expectAPIError decodes the error envelope and checks code and status.
func expectAPIError(t *testing.T, resp *http.Response, code int, status string) *api.APIError {
	t.Helper()
	if resp.StatusCode != code {
		t.Fatalf("expected HTTP %d, got %d: %s", code, resp.StatusCode, readBody(t, resp))
	}
	var body api.ErrorResponse
	decodeJSON(t, resp, &body)
	if body.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if body.Error.Code != code {
		t.Errorf("expected error code %d, got %d", code, body.Error.Code)
	}
	if body.Error.Status != status {
		t.Errorf("expected status %q, got %q", status, body.Error.Status)
	}
	if body.Error.Message == "" {
		t.Error("expected a non-empty error message")
	}
	return body.Error
}

func TestUnknownModelReturnsNotFound(t *testing.T) {
	resp := postJSON(t, modelURL("no-such-model", "generateContent"),
		textRequest("Hello"))
	apiErr := expectAPIError(t, resp, http.StatusNotFound, "NOT_FOUND")
	if !strings.Contains(apiErr.Message, "no-such-model") {
		t.Errorf("expected message to name the model, got %q", apiErr.Message)
	}
}

func TestUnknownOperationReturnsNotFound(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "embedContent"),
		textRequest("Hello"))
	expectAPIError(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestMalformedJSONReturnsInvalidArgument(t *testing.T) {
	url := modelURL("gemini-2.0-flash", "generateContent")
	resp, err := http.Post(url, "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	expectAPIError(t, resp, http.StatusBadRequest, "INVALID_ARGUMENT")
}

func TestEmptyContentsReturnsInvalidArgument(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"),
		map[string]any{"contents": []any{}})
	expectAPIError(t, resp, http.StatusBadRequest, "INVALID_ARGUMENT")
}

func TestUnsupportedRoleReturnsInvalidArgument(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"),
		map[string]any{
			"contents": []map[string]any{
				{"role": "assistant", "parts": []map[string]any{{"text": "hi"}}},
			},
		})
	expectAPIError(t, resp, http.StatusBadRequest, "INVALID_ARGUMENT")
}

func TestOrphanFunctionResponseReturnsInvalidArgument(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"),
		map[string]any{
			"contents": []map[string]any{
				{
					"role": "user",
					"parts": []map[string]any{
						{"functionResponse": map[string]any{
							"name":     "get_weather",
							"response": map[string]any{"ok": true},
						}},
					},
				},
			},
		})
	apiErr := expectAPIError(t, resp, http.StatusBadRequest, "INVALID_ARGUMENT")
	if !strings.Contains(apiErr.Message, "functionCall") {
		t.Errorf("expected message to mention the missing call, got %q", apiErr.Message)
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	resp := postJSON(t, modelURL("gemini-2.0-flash", "generateContent"),
		textRequest("fail with 429"))
	expectAPIError(t, resp, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED")
}

func TestGetMethodNotAllowed(t *testing.T) {
	resp := getURL(t, modelURL("gemini-2.0-flash", "generateContent"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestUnknownPathReturnsNotFound(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/v1beta/widgets")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
