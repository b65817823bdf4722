// Package api defines the inbound wire format of the gateway: the
// Gemini-style generateContent request and response shapes, the error
// envelope, and request validation.
//
// These types are the public contract of the gateway. The translation
// engine (pkg/translate) converts them to and from the backend's Chat
// Completions format; nothing in this package talks to the network.
package api
