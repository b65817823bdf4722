// Package openai is the HTTP client for an OpenAI-compatible Chat
// Completions backend. It speaks the backend's wire format directly;
// translation between that format and the gateway's own protocol lives
// in pkg/translate.
package openai
