package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// helper to perform a JSON-RPC request against the HTTP handler
func doRPC(t *testing.T, h http.HandlerFunc, body interface{}, headers map[string]string) (*http.Response, Response) {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	resp := rr.Result()
	data, _ := io.ReadAll(resp.Body)
	var rpc Response
	_ = json.Unmarshal(data, &rpc)
	return resp, rpc
}

func rpcBody(id interface{}, method string, params interface{}) map[string]interface{} {
	body := map[string]interface{}{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		body["params"] = params
	}
	return body
}

func newEchoServer() *Server {
	s := NewServer("test", "0.1.0", nil)
	s.RegisterTool(
		NewTool("echo", "echoes the msg parameter").
			AddParam("msg", TypeString, "message", true),
		func(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
			v, err := req.String("msg")
			if err != nil {
				return nil, NewToolErrorInvalidParams("msg parameter is required", nil)
			}
			return NewToolResponseText(v), nil
		},
	)
	return s
}

func TestInitialize_DefaultsAndVersion(t *testing.T) {
	s := NewServer("test", "0.1.0", nil)
	handler := http.HandlerFunc(s.HandleRequest)

	// initialize without explicit version uses latest
	_, rpc := doRPC(t, handler, rpcBody(1, "initialize", map[string]any{
		"capabilities": map[string]any{},
		"clientInfo":   map[string]any{"name": "t", "version": "1"},
	}), nil)
	if rpc.Error != nil {
		t.Fatalf("unexpected error: %+v", rpc.Error)
	}
	res := rpc.Result.(map[string]any)
	if res["protocolVersion"] != ProtocolVersionLatest {
		t.Fatalf("expected latest version, got %v", res["protocolVersion"])
	}

	// initialize with supported older version echoes it
	_, rpc = doRPC(t, handler, rpcBody(2, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
	}), nil)
	if rpc.Error != nil {
		t.Fatalf("unexpected error: %+v", rpc.Error)
	}
	res = rpc.Result.(map[string]any)
	if res["protocolVersion"] != "2024-11-05" {
		t.Fatalf("expected echoed version, got %v", res["protocolVersion"])
	}

	// initialize with unsupported version
	_, rpc = doRPC(t, handler, rpcBody(3, "initialize", map[string]any{
		"protocolVersion": "1900-01-01",
	}), nil)
	if rpc.Error == nil || rpc.Error.Code != ErrorCodeInvalidParams {
		t.Fatalf("expected invalid params error, got %+v", rpc.Error)
	}
}

func TestPing(t *testing.T) {
	s := NewServer("test", "0.1.0", nil)
	handler := http.HandlerFunc(s.HandleRequest)

	resp, rpc := doRPC(t, handler, rpcBody(1, "ping", nil), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if rpc.Error != nil {
		t.Fatalf("unexpected error: %+v", rpc.Error)
	}
}

func TestToolsListAndCall(t *testing.T) {
	s := newEchoServer()
	handler := http.HandlerFunc(s.HandleRequest)

	_, rpc := doRPC(t, handler, rpcBody(1, "tools/list", nil), nil)
	if rpc.Error != nil {
		t.Fatalf("list tools error: %+v", rpc.Error)
	}
	res := rpc.Result.(map[string]any)
	tools := res["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	tool := tools[0].(map[string]any)
	if tool["name"] != "echo" {
		t.Fatalf("expected echo tool, got %v", tool["name"])
	}
	schema := tool["inputSchema"].(map[string]any)
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}

	_, rpc = doRPC(t, handler, rpcBody(2, "tools/call", map[string]any{
		"name":      "echo",
		"arguments": map[string]any{"msg": "hi"},
	}), nil)
	if rpc.Error != nil {
		t.Fatalf("tool call error: %+v", rpc.Error)
	}
	res = rpc.Result.(map[string]any)
	content := res["content"].([]any)
	first := content[0].(map[string]any)
	if first["text"] != "hi" {
		t.Fatalf("expected echoed text, got %v", first["text"])
	}
}

func TestToolCall_Errors(t *testing.T) {
	s := newEchoServer()
	handler := http.HandlerFunc(s.HandleRequest)

	// missing required parameter surfaces the handler's ToolError
	_, rpc := doRPC(t, handler, rpcBody(1, "tools/call", map[string]any{
		"name":      "echo",
		"arguments": map[string]any{},
	}), nil)
	if rpc.Error == nil || rpc.Error.Code != ErrorCodeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", rpc.Error)
	}

	// unknown tool
	_, rpc = doRPC(t, handler, rpcBody(2, "tools/call", map[string]any{
		"name": "nope",
	}), nil)
	if rpc.Error == nil || rpc.Error.Code != ErrorCodeInvalidParams {
		t.Fatalf("expected invalid params for unknown tool, got %+v", rpc.Error)
	}
}

func TestMethodNotFound(t *testing.T) {
	s := NewServer("test", "0.1.0", nil)
	handler := http.HandlerFunc(s.HandleRequest)

	_, rpc := doRPC(t, handler, rpcBody(1, "bogus/method", nil), nil)
	if rpc.Error == nil || rpc.Error.Code != ErrorCodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", rpc.Error)
	}
}

func TestHTTPProtocolChecks(t *testing.T) {
	s := NewServer("test", "0.1.0", nil)
	handler := http.HandlerFunc(s.HandleRequest)

	// wrong method
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// wrong content type
	req = httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}

	// malformed JSON body is a JSON-RPC parse error, still 200
	req = httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{oops"))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var rpc Response
	if err := json.Unmarshal(rr.Body.Bytes(), &rpc); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if rpc.Error == nil || rpc.Error.Code != ErrorCodeParseError {
		t.Fatalf("expected parse error, got %+v", rpc.Error)
	}

	// wrong jsonrpc version
	_, rpc = doRPC(t, handler, map[string]any{"jsonrpc": "1.0", "id": 1, "method": "ping"}, nil)
	if rpc.Error == nil || rpc.Error.Code != ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", rpc.Error)
	}
}

func TestHTTPNotificationGetsNoBody(t *testing.T) {
	s := NewServer("test", "0.1.0", nil)
	handler := http.HandlerFunc(s.HandleRequest)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for notification, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected no body for notification, got %q", rr.Body.String())
	}

	// an explicit null id is still a request and gets a reply
	req = httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":null,"method":"ping"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for null id, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected a reply for null id request")
	}
}

func TestServeStdio(t *testing.T) {
	s := newEchoServer()

	lines := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"msg":"hello"}}}`,
		``,
		`{"jsonrpc":"2.0","id":3,"method":"nope"}`,
	}
	var out bytes.Buffer
	err := s.ServeStdio(context.Background(), strings.NewReader(strings.Join(lines, "\n")), &out)
	if err != nil {
		t.Fatalf("stdio loop failed: %v", err)
	}

	replies := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(replies) != 3 {
		t.Fatalf("expected 3 replies (notification dropped), got %d: %q", len(replies), replies)
	}

	var first Response
	if err := json.Unmarshal([]byte(replies[0]), &first); err != nil {
		t.Fatalf("bad reply: %v", err)
	}
	res := first.Result.(map[string]any)
	if res["protocolVersion"] != "2025-03-26" {
		t.Fatalf("expected negotiated version, got %v", res["protocolVersion"])
	}

	var second Response
	_ = json.Unmarshal([]byte(replies[1]), &second)
	content := second.Result.(map[string]any)["content"].([]any)
	if content[0].(map[string]any)["text"] != "hello" {
		t.Fatalf("unexpected tool reply: %v", second.Result)
	}

	var third Response
	_ = json.Unmarshal([]byte(replies[2]), &third)
	if third.Error == nil || third.Error.Code != ErrorCodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", third.Error)
	}
}

func TestToolRequestBind(t *testing.T) {
	req := NewToolRequest(map[string]interface{}{
		"toon":   "a: 1",
		"strict": false,
	})

	var args struct {
		Toon   string `json:"toon"`
		Strict *bool  `json:"strict,omitempty"`
		Coerce *bool  `json:"coerce_types,omitempty"`
	}
	if err := req.Bind(&args); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if args.Toon != "a: 1" {
		t.Fatalf("unexpected toon: %q", args.Toon)
	}
	if args.Strict == nil || *args.Strict {
		t.Fatalf("expected strict=false, got %v", args.Strict)
	}
	if args.Coerce != nil {
		t.Fatalf("expected absent coerce to stay nil")
	}
}
