// Package tools declares the closed set of operations the model may call
// and validates+routes calls into the store.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	apperrors "github.com/gmsas95/aria/internal/errors"
)

// Tool is the interface for all tools. Execute returns a human-readable
// string summarizing the outcome — never raw structured data, since the
// result is fed back to the model as conversational text.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry manages available tools. Registration order is preserved so
// Definitions() is deterministic across runs, which keeps prompts
// reproducible.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Re-registering a name replaces the
// tool but keeps its original position.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns tool definitions for the model, in registration order.
func (r *Registry) Definitions() []map[string]interface{} {
	defs := make([]map[string]interface{}, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  t.Parameters(),
			},
		})
	}
	return defs
}

// Invoke validates a call against the declared schema and executes it.
// Unknown names fail with ErrUnknownTool, argument mismatches with
// ErrInvalidArguments; both are recoverable by the model.
func (r *Registry) Invoke(ctx context.Context, name string, argsJSON string) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", apperrors.Wrap(fmt.Errorf("no tool named %q", name), apperrors.ErrUnknownTool, name)
	}

	args := map[string]interface{}{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrInvalidArguments, "arguments are not valid JSON")
		}
	}

	if err := validateArgs(tool.Parameters(), args); err != nil {
		return "", err
	}

	return tool.Execute(ctx, args)
}

// validateArgs checks the arguments against a JSON-schema-shaped parameter
// declaration: required fields must be present, declared types must match,
// and undeclared fields are rejected.
func validateArgs(schema map[string]interface{}, args map[string]interface{}) error {
	properties, _ := schema["properties"].(map[string]interface{})

	if required, ok := schema["required"].([]string); ok {
		for _, field := range required {
			if _, present := args[field]; !present {
				return apperrors.Wrap(fmt.Errorf("missing required field %q", field), apperrors.ErrInvalidArguments, "missing required field")
			}
		}
	}

	for key, value := range args {
		prop, declared := properties[key].(map[string]interface{})
		if !declared {
			return apperrors.Wrap(fmt.Errorf("unexpected field %q", key), apperrors.ErrInvalidArguments, "unexpected field")
		}

		declaredType, _ := prop["type"].(string)
		if !typeMatches(declaredType, value) {
			return apperrors.Wrap(fmt.Errorf("field %q must be of type %s", key, declaredType), apperrors.ErrInvalidArguments, "type mismatch")
		}

		if enum, ok := prop["enum"].([]string); ok {
			s, _ := value.(string)
			if !contains(enum, s) {
				return apperrors.Wrap(fmt.Errorf("field %q must be one of %v", key, enum), apperrors.ErrInvalidArguments, "value not in enum")
			}
		}
	}

	return nil
}

func typeMatches(declaredType string, value interface{}) bool {
	switch declaredType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		// encoding/json decodes all numbers as float64.
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case "number":
		_, ok := value.(float64)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "":
		return true
	default:
		return true
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
