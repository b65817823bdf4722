// Package translate converts between the gateway's inbound wire format
// (pkg/api) and the backend's Chat Completions format (pkg/backend/openai),
// with the content model of pkg/model as the intermediate representation.
//
// Parse turns an inbound request into the content model, ToChat renders
// the content model as a Chat Completions request, and FromChat maps a
// complete backend response back to the inbound format. StreamTranscoder
// does the same for streaming responses, re-assembling fragmented tool
// calls before they are surfaced.
package translate
