package model

import (
	"encoding/json"
	"fmt"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// PartKind discriminates the variants of Part.
type PartKind int

const (
	KindText PartKind = iota
	KindBinary
	KindToolInvocation
	KindToolResult
)

func (k PartKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindToolInvocation:
		return "tool_invocation"
	case KindToolResult:
		return "tool_result"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Part is one typed unit of content. Kind selects which of the variant
// fields is meaningful.
type Part struct {
	Kind PartKind

	Text       string
	Binary     *Binary
	Invocation *ToolInvocation
	Result     *ToolResult
}

// Binary is decoded inline data with its media type.
type Binary struct {
	MIMEType string
	Data     []byte
}

// ToolInvocation is a model-initiated call of a declared function.
// CallID correlates the invocation with its eventual result; the
// translators synthesize one when the source protocol has none.
type ToolInvocation struct {
	CallID string
	Name   string
	Args   json.RawMessage
}

// ToolResult carries the output of a tool invocation back to the model.
type ToolResult struct {
	CallID   string
	Name     string
	Response json.RawMessage
}

// TextPart returns a text part.
func TextPart(s string) Part {
	return Part{Kind: KindText, Text: s}
}

// BinaryPart returns an inline-data part.
func BinaryPart(mimeType string, data []byte) Part {
	return Part{Kind: KindBinary, Binary: &Binary{MIMEType: mimeType, Data: data}}
}

// InvocationPart returns a tool-invocation part.
func InvocationPart(inv ToolInvocation) Part {
	return Part{Kind: KindToolInvocation, Invocation: &inv}
}

// ResultPart returns a tool-result part.
func ResultPart(res ToolResult) Part {
	return Part{Kind: KindToolResult, Result: &res}
}

// Turn is one role-attributed step of the conversation.
type Turn struct {
	Role  Role
	Parts []Part
}

// Declaration describes one callable function the model may invoke.
// Parameters is an opaque JSON Schema object.
type Declaration struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Config holds sampling parameters. Nil pointer fields are absent and
// must not be forwarded to the backend.
type Config struct {
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
	StopSequences   []string
}

// Request is a fully parsed generation request, independent of either
// wire format.
type Request struct {
	Turns  []Turn
	System string
	Config Config
	Tools  []Declaration
}

// Validate checks the structural invariants the transcoders depend on.
func (r *Request) Validate() error {
	if len(r.Turns) == 0 {
		return fmt.Errorf("request has no turns")
	}
	for i, turn := range r.Turns {
		switch turn.Role {
		case RoleUser, RoleModel, RoleTool:
		default:
			return fmt.Errorf("turn %d: unknown role %q", i, turn.Role)
		}
		for j, p := range turn.Parts {
			if err := validatePart(turn.Role, p); err != nil {
				return fmt.Errorf("turn %d part %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func validatePart(role Role, p Part) error {
	switch p.Kind {
	case KindText:
		return nil
	case KindBinary:
		if p.Binary == nil {
			return fmt.Errorf("binary part without data")
		}
	case KindToolInvocation:
		if p.Invocation == nil {
			return fmt.Errorf("invocation part without invocation")
		}
		if role != RoleModel {
			return fmt.Errorf("tool invocation in %s turn", role)
		}
		if p.Invocation.CallID == "" || p.Invocation.Name == "" {
			return fmt.Errorf("tool invocation missing call id or name")
		}
	case KindToolResult:
		if p.Result == nil {
			return fmt.Errorf("result part without result")
		}
		if role != RoleTool {
			return fmt.Errorf("tool result in %s turn", role)
		}
		if p.Result.CallID == "" {
			return fmt.Errorf("tool result missing call id")
		}
	default:
		return fmt.Errorf("unknown part kind %s", p.Kind)
	}
	return nil
}
