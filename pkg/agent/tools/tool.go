// Package tools holds the functions specialists may call while answering.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool is one callable capability. Description is shown to the model and
// should document the JSON arguments.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// ArgumentError is a malformed call. It is reported back to the model
// instead of failing the turn.
type ArgumentError struct {
	Tool   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid arguments: %s", e.Tool, e.Reason)
}

type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, dup := r.tools[t.Name()]; !dup {
			r.order = append(r.order, t.Name())
		}
		r.tools[t.Name()] = t
	}
	return r
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Catalog renders the tool list for a system prompt.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, name := range r.order {
		fmt.Fprintf(&b, "- %s: %s\n", name, r.tools[name].Description())
	}
	return b.String()
}

func decodeArgs(tool string, raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ArgumentError{Tool: tool, Reason: err.Error()}
	}
	return nil
}
