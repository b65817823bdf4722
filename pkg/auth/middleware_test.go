package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fixedAuthenticator struct {
	result Result
}

func (f *fixedAuthenticator) Authenticate(_ context.Context, _ *http.Request) Result {
	return f.result
}

func serveWith(t *testing.T, chain *Chain, path string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var seen *Identity
	handler := Middleware(chain, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareAllowsValidIdentity(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{
		&fixedAuthenticator{result: Result{Decision: Yes, Identity: &Identity{Subject: "alice"}}},
	}}

	rec, seen := serveWith(t, chain, "/v1beta/models/m:generateContent")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Subject != "alice" {
		t.Errorf("identity in context = %v, want alice", seen)
	}
}

func TestMiddlewareRejectsWithErrorEnvelope(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{
		&fixedAuthenticator{result: Result{Decision: No, Err: ErrUnauthenticated}},
	}}

	rec, _ := serveWith(t, chain, "/v1beta/models/m:generateContent")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var envelope struct {
		Error struct {
			Code   int    `json:"code"`
			Status string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if envelope.Error.Code != 401 || envelope.Error.Status != "UNAUTHENTICATED" {
		t.Errorf("envelope = %+v", envelope.Error)
	}
}

func TestMiddlewareBypassesHealthz(t *testing.T) {
	chain := &Chain{DefaultDecision: No}

	rec, _ := serveWith(t, chain, "/healthz")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for bypassed endpoint", rec.Code)
	}
}

func TestMiddlewareRejectsEmptySubject(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{
		&fixedAuthenticator{result: Result{Decision: Yes, Identity: &Identity{}}},
	}}

	rec, _ := serveWith(t, chain, "/v1beta/models/m:generateContent")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
