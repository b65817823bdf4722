// Package engine orchestrates request processing between the transport
// layer and the backend. It validates inbound requests, resolves model
// names, translates between the two protocols, pumps streaming events,
// and records per-request usage.
package engine
