// Package mcp implements a minimal MCP (Model Context Protocol) server:
// JSON-RPC 2.0 dispatch with initialize, ping, tools/list and tools/call,
// served over HTTP POST or newline-delimited stdio. Both transports feed
// the same dispatch path, so tool semantics cannot drift between them.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
)

const (
	ProtocolVersionLatest = "2025-06-18"
	ProtocolVersionMin    = "2024-11-05"
)

var supportedProtocolVersions = []string{
	"2024-11-05",
	"2025-03-26",
	"2025-06-18",
}

type registeredTool struct {
	Name         string
	Description  string
	Schema       map[string]interface{}
	OutputSchema map[string]interface{}
	Handler      ToolHandler
}

// Server is an MCP server instance holding the tool registry.
type Server struct {
	name    string
	version string
	logger  *slog.Logger
	tools   map[string]*registeredTool
	mu      sync.RWMutex
}

func NewServer(name, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		name:    name,
		version: version,
		logger:  logger,
		tools:   make(map[string]*registeredTool),
	}
}

// RegisterTool adds a tool to the registry, replacing any previous tool
// with the same name.
func (s *Server) RegisterTool(tool *ToolBuilder, handler ToolHandler) {
	s.mu.Lock()
	s.tools[tool.name] = &registeredTool{
		Name:         tool.name,
		Description:  tool.description,
		Schema:       tool.buildSchema(),
		OutputSchema: tool.buildOutputSchema(),
		Handler:      handler,
	}
	s.mu.Unlock()
}

// Dispatch routes a single JSON-RPC request and returns the response.
// It is transport-neutral; the HTTP and stdio front-ends both call it.
func (s *Server) Dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrorCodeInvalidRequest, "Invalid Request", map[string]interface{}{
			"details": "jsonrpc field must be '2.0'",
		})
	}

	id := req.ID
	if id == nil {
		id = ""
	}

	s.logger.Debug("mcp request", "method", req.Method)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(id, req.Params)
	case "ping":
		return s.resultResponse(id, map[string]interface{}{})
	case "tools/list":
		return s.resultResponse(id, map[string]interface{}{"tools": s.ListTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, id, req.Params)
	default:
		return s.errorResponse(id, ErrorCodeMethodNotFound, "Method not found", map[string]interface{}{
			"method": req.Method,
		})
	}
}

func isSupportedProtocolVersion(version string) bool {
	for _, supported := range supportedProtocolVersions {
		if supported == version {
			return true
		}
	}
	return false
}

func (s *Server) handleInitialize(id interface{}, raw json.RawMessage) *Response {
	var params initializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return s.errorResponse(id, ErrorCodeInvalidParams, "Invalid params", nil)
		}
	}

	protocolVersion := ProtocolVersionLatest
	if params.ProtocolVersion != "" {
		if !isSupportedProtocolVersion(params.ProtocolVersion) {
			return s.errorResponse(id, ErrorCodeInvalidParams, "Unsupported protocol version", map[string]interface{}{
				"requested": params.ProtocolVersion,
				"supported": supportedProtocolVersions,
			})
		}
		protocolVersion = params.ProtocolVersion
	}

	s.logger.Debug("mcp initialize", "client", params.ClientInfo.Name, "protocolVersion", protocolVersion)

	return s.resultResponse(id, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    buildCapabilities(protocolVersion),
		ServerInfo: serverInfo{
			Name:    s.name,
			Version: s.version,
		},
	})
}

func buildCapabilities(protocolVersion string) capabilities {
	if protocolVersion == ProtocolVersionMin {
		return capabilities{Tools: map[string]interface{}{}}
	}
	return capabilities{Tools: map[string]interface{}{"listChanged": false}}
}

// ListTools returns all registered tools sorted by name.
func (s *Server) ListTools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]Tool, 0, len(s.tools))
	for _, tool := range s.tools {
		item := Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema,
		}
		if tool.OutputSchema != nil {
			item.OutputSchema = tool.OutputSchema
		}
		tools = append(tools, item)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// CallTool executes a registered tool directly, outside the JSON-RPC path.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResponse, error) {
	s.mu.RLock()
	tool, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return nil, &ToolError{Code: ErrorCodeInvalidParams, Message: fmt.Sprintf("unknown tool '%s'", name)}
	}
	return tool.Handler(ctx, NewToolRequest(args))
}

func (s *Server) handleToolsCall(ctx context.Context, id interface{}, raw json.RawMessage) *Response {
	var params toolCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.errorResponse(id, ErrorCodeInvalidParams, "Invalid params", nil)
	}

	response, err := s.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return s.errorResponse(id, te.Code, te.Message, te.Data)
		}
		return s.errorResponse(id, ErrorCodeInternalError, fmt.Sprintf("Tool execution failed: %v", err), nil)
	}

	return s.resultResponse(id, ToolResult{
		Content:           response.Content,
		StructuredContent: response.StructuredContent,
	})
}

func (s *Server) resultResponse(id, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message, Data: data}}
}

// HandleRequest serves the MCP protocol over HTTP. JSON-RPC responses are
// always status 200; protocol failures live in the error member.
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")

	var env requestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.writeResponse(w, s.errorResponse(nil, ErrorCodeParseError, "Parse error", map[string]interface{}{
			"details": err.Error(),
		}))
		return
	}

	req := env.request()
	resp := s.Dispatch(r.Context(), &req)

	if env.isNotification() {
		// No response body for notifications.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
