package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/toon-mcp/internal/core"
	"github.com/copyleftdev/toon-mcp/internal/mcp"
	"github.com/copyleftdev/toon-mcp/internal/tools"
)

func newTestHandler() http.Handler {
	mcpServer := mcp.NewServer("toon-mcp", core.Version, nil)
	tools.Register(mcpServer)
	return New(nil, mcpServer).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var decoded map[string]interface{}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), "body: %s", rr.Body.String())
	}
	return rr, decoded
}

func TestHealth(t *testing.T) {
	rr, body := doJSON(t, newTestHandler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, core.Version, body["version"])
}

func TestEncodeEndpoint(t *testing.T) {
	h := newTestHandler()

	rr, body := doJSON(t, h, http.MethodPost, "/api/v1/encode", map[string]interface{}{
		"json": map[string]interface{}{"name": "Alice", "age": 30},
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "age: 30\nname: Alice", body["toon"])

	// string input is parsed as a JSON document
	rr, body = doJSON(t, h, http.MethodPost, "/api/v1/encode", map[string]interface{}{
		"json":      `{"tags":["a","b","c"]}`,
		"delimiter": "tab",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tags[3\t]: a\tb\tc", body["toon"])

	rr, body = doJSON(t, h, http.MethodPost, "/api/v1/encode", map[string]interface{}{
		"json": `{broken`,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, body["error"], "invalid JSON input")
}

func TestDecodeEndpoint(t *testing.T) {
	h := newTestHandler()

	rr, body := doJSON(t, h, http.MethodPost, "/api/v1/decode", map[string]interface{}{
		"toon": "age: 30\nname: Alice",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{"age": 30.0, "name": "Alice"}, body["json"])
}

func TestDecodeEndpointErrors(t *testing.T) {
	h := newTestHandler()

	rr, body := doJSON(t, h, http.MethodPost, "/api/v1/decode", map[string]interface{}{
		"toon": "a:\n\tb: 1",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	details := body["details"].(map[string]interface{})
	assert.Equal(t, 2.0, details["line"])
	assert.Equal(t, "use spaces for indentation", details["suggestion"])

	rr, body = doJSON(t, h, http.MethodPost, "/api/v1/decode", map[string]interface{}{
		"toon": "tags[3]: a,b",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	details = body["details"].(map[string]interface{})
	assert.Equal(t, 3.0, details["expected"])
	assert.Equal(t, 2.0, details["found"])

	// lenient mode succeeds
	rr, _ = doJSON(t, h, http.MethodPost, "/api/v1/decode", map[string]interface{}{
		"toon":   "tags[3]: a,b",
		"strict": false,
	})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestValidateEndpoint(t *testing.T) {
	h := newTestHandler()

	rr, body := doJSON(t, h, http.MethodPost, "/api/v1/validate", map[string]interface{}{
		"toon": "a: 1",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["valid"])

	// invalid documents are still 200
	rr, body = doJSON(t, h, http.MethodPost, "/api/v1/validate", map[string]interface{}{
		"toon": "tags[3]: a,b",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, false, body["valid"])
	errDetail := body["error"].(map[string]interface{})
	assert.Equal(t, string(core.KindLengthMismatch), errDetail["kind"])
}

func TestStatsEndpoint(t *testing.T) {
	rr, body := doJSON(t, newTestHandler(), http.MethodPost, "/api/v1/stats", map[string]interface{}{
		"json": `{"users":[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}]}`,
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	jsonStats := body["json"].(map[string]interface{})
	toonStats := body["toon"].(map[string]interface{})
	assert.Greater(t, jsonStats["bytes"], toonStats["bytes"])
	savings := body["savings"].(map[string]interface{})
	assert.Greater(t, savings["bytes_percent"], 0.0)
}

func TestMalformedBody(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/encode", bytes.NewReader([]byte("{oops")))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOpenAPIDocument(t *testing.T) {
	rr, body := doJSON(t, newTestHandler(), http.MethodGet, "/api-docs/openapi.json", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3.0.3", body["openapi"])

	paths := body["paths"].(map[string]interface{})
	for _, p := range []string{"/health", "/api/v1/encode", "/api/v1/decode", "/api/v1/validate", "/api/v1/stats"} {
		assert.Contains(t, paths, p)
	}
	schemas := body["components"].(map[string]interface{})["schemas"].(map[string]interface{})
	assert.Contains(t, schemas, "EncodeRequest")
	assert.Contains(t, schemas, "StatsResponse")
}

func TestDocsPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api-docs", nil)
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "/api-docs/openapi.json")
}

func TestMiddleware(t *testing.T) {
	h := newTestHandler()

	rr, _ := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	// client-provided request IDs are echoed
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-Id"))

	// preflight
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/encode", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMCPEndpointMounted(t *testing.T) {
	rr, body := doJSON(t, newTestHandler(), http.MethodPost, "/mcp", map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "tools/list",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	result := body["result"].(map[string]interface{})
	toolList := result["tools"].([]interface{})
	assert.Len(t, toolList, 5)
}
