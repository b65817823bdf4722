package openai

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/debug"
)

// MapHTTPError converts a non-2xx backend response into an APIError.
// It attempts to parse the body as a ChatErrorResponse to extract a
// descriptive message.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "backend rejected the request"
		}
		return api.NewMalformedRequestError("%s", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		// The gateway's credential is misconfigured, not the client's.
		return api.NewBackendProtocolError("%s", message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "backend model not found"
		}
		return api.NewNotFoundError("%s", message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		return api.NewResourceExhaustedError("%s", message)

	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = "backend server error"
		}
		return api.NewBackendTransportError("%s (HTTP %d)", message, resp.StatusCode)

	default:
		if message == "" {
			message = "unexpected backend response"
		}
		return api.NewBackendProtocolError("%s (HTTP %d)", message, resp.StatusCode)
	}
}

// MapNetworkError converts a network-level failure (connection refused,
// timeout, DNS) into an APIError.
func MapNetworkError(err error) *api.APIError {
	return api.NewBackendTransportError("backend connection error: %s", err.Error())
}

// ExtractErrorMessage tries to parse the response body as a
// ChatErrorResponse and returns the message if found.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	debug.Log("backend", "unparseable error body", "body", debug.Truncate(string(data), 512))
	return ""
}
