// Package apikey provides an API key authenticator that validates
// client keys against a static key store using SHA-256 hashing and
// constant-time comparison.
//
// Keys are accepted from the places Gemini clients put them: the
// x-goog-api-key header, the key query parameter, or an Authorization
// Bearer header.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/auth"
)

// KeyEntry maps a key hash to an identity.
type KeyEntry struct {
	KeyHash  [32]byte
	Identity auth.Identity
}

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key      string
	Identity auth.Identity
}

// Authenticator validates client keys against a static key store.
type Authenticator struct {
	keys []KeyEntry
}

// New creates an API key authenticator from a list of raw keys and identities.
// Keys are hashed immediately; plaintext keys are not stored.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		a.keys = append(a.keys, KeyEntry{
			KeyHash:  sha256.Sum256([]byte(e.Key)),
			Identity: e.Identity,
		})
	}
	return a
}

// Authenticate extracts the client key and validates it.
// Returns Yes if valid, No if a key is present but invalid, Abstain if
// the request carries no recognizable credential.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	key, found := extractKey(r)
	if !found {
		return auth.Result{Decision: auth.Abstain}
	}
	if key == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	keyHash := sha256.Sum256([]byte(key))

	for _, entry := range a.keys {
		if subtle.ConstantTimeCompare(keyHash[:], entry.KeyHash[:]) == 1 {
			// Copy identity to avoid shared state.
			id := entry.Identity
			return auth.Result{Decision: auth.Yes, Identity: &id}
		}
	}

	// Key present but not found.
	return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
}

// extractKey pulls the client key from the request. Lookup order
// follows what Gemini SDKs send: header, query parameter, then a
// Bearer token.
func extractKey(r *http.Request) (key string, found bool) {
	if v := r.Header.Get("x-goog-api-key"); v != "" {
		return v, true
	}
	if r.URL.Query().Has("key") {
		return r.URL.Query().Get("key"), true
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), true
	}
	return "", false
}
