package mcp

import (
	"encoding/json"
	"fmt"
)

// ToolResponse is the payload a tool handler returns.
type ToolResponse struct {
	Content           []ToolContent `json:"content"`
	StructuredContent interface{}   `json:"structuredContent,omitempty"`
}

func NewToolResponseText(text string) *ToolResponse {
	return &ToolResponse{Content: []ToolContent{{Type: "text", Text: text}}}
}

func NewToolResponseJSON(data interface{}) *ToolResponse {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return NewToolResponseText(fmt.Sprintf("Error marshaling data: %v", err))
	}
	return NewToolResponseText(string(jsonData))
}

// NewToolResponseStructured carries structured content alongside a JSON
// text block for clients that only read text.
func NewToolResponseStructured(data interface{}) *ToolResponse {
	resp := NewToolResponseJSON(data)
	resp.StructuredContent = data
	return resp
}
