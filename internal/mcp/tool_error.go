package mcp

import "fmt"

// Standard JSON-RPC 2.0 error codes used by the MCP protocol.
// See: https://www.jsonrpc.org/specification#error_object
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603
)

// ToolError is an MCP protocol error returned from tool handlers. The
// code, message and data reach the client in the JSON-RPC error member.
type ToolError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("MCP Error %d: %s", e.Code, e.Message)
}

// NewToolErrorInvalidParams flags missing or invalid parameters, with
// optional structured detail.
func NewToolErrorInvalidParams(message string, data interface{}) error {
	return &ToolError{
		Code:    ErrorCodeInvalidParams,
		Message: message,
		Data:    data,
	}
}

// NewToolErrorInternal flags an unexpected server-side failure.
func NewToolErrorInternal(message string) error {
	return &ToolError{
		Code:    ErrorCodeInternalError,
		Message: message,
	}
}
