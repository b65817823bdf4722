package apikey

import (
	"context"
	"net/http"
	"testing"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/auth"
)

func newTestAuth() *Authenticator {
	return New([]RawKeyEntry{
		{Key: "sk-test-key-1", Identity: auth.Identity{Subject: "alice"}},
		{Key: "sk-test-key-2", Identity: auth.Identity{Subject: "bob"}},
	})
}

func TestValidKeyHeader(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/v1beta/models/m:generateContent", nil)
	r.Header.Set("x-goog-api-key", "sk-test-key-1")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Identity.Subject != "alice" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "alice")
	}
}

func TestValidKeyQueryParam(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/v1beta/models/m:generateContent?key=sk-test-key-2", nil)

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Identity.Subject != "bob" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "bob")
	}
}

func TestValidKeyBearer(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/v1beta/models/m:generateContent", nil)
	r.Header.Set("Authorization", "Bearer sk-test-key-1")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
}

func TestInvalidKey(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/v1beta/models/m:generateContent", nil)
	r.Header.Set("x-goog-api-key", "sk-wrong")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
	if result.Err == nil {
		t.Error("expected an error for an invalid key")
	}
}

func TestEmptyQueryKey(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/v1beta/models/m:generateContent?key=", nil)

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
}

func TestNoCredentialsAbstains(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/v1beta/models/m:generateContent", nil)

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain", result.Decision)
	}
}

func TestNonBearerAuthorizationAbstains(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/v1beta/models/m:generateContent", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain", result.Decision)
	}
}
