// Package model defines the gateway's internal representation of a
// conversation: role-attributed turns of typed parts, plus the sampling
// configuration and tool declarations that accompany a request.
//
// Both wire formats are translated through this representation, so its
// invariants (every tool invocation carries a call ID, every tool result
// references one) are what the transcoders in pkg/translate rely on.
package model
