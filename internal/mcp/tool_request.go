package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownParameter is returned by the typed accessors when the argument
// is absent.
var ErrUnknownParameter = errors.New("unknown parameter")

// ToolHandler handles a single tool call.
type ToolHandler func(ctx context.Context, req *ToolRequest) (*ToolResponse, error)

// ToolRequest provides typed access to tool arguments.
type ToolRequest struct {
	args map[string]interface{}
}

func NewToolRequest(args map[string]interface{}) *ToolRequest {
	return &ToolRequest{args: args}
}

// Value returns a raw argument and whether it was present.
func (r *ToolRequest) Value(name string) (interface{}, bool) {
	val, ok := r.args[name]
	return val, ok
}

func (r *ToolRequest) String(name string) (string, error) {
	val, ok := r.args[name]
	if !ok {
		return "", ErrUnknownParameter
	}
	if str, ok := val.(string); ok {
		return str, nil
	}
	return "", fmt.Errorf("parameter '%s' is not a string", name)
}

func (r *ToolRequest) StringOr(name, defaultValue string) string {
	if val, err := r.String(name); err == nil {
		return val
	}
	return defaultValue
}

func (r *ToolRequest) Int(name string) (int, error) {
	val, ok := r.args[name]
	if !ok {
		return 0, ErrUnknownParameter
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter '%s' is not a number", name)
	}
}

func (r *ToolRequest) Bool(name string) (bool, error) {
	val, ok := r.args[name]
	if !ok {
		return false, ErrUnknownParameter
	}
	if b, ok := val.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("parameter '%s' is not a boolean", name)
}

// Bind decodes the full argument map into a request struct using its JSON
// tags. Absent arguments leave their fields zero, so pointer fields model
// optional parameters.
func (r *ToolRequest) Bind(v interface{}) error {
	data, err := json.Marshal(r.args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
