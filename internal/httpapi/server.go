// Package httpapi is the REST front-end over the core TOON operations. It
// also mounts the MCP protocol endpoint so HTTP clients can use either
// surface against the same tool semantics.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/copyleftdev/toon-mcp/internal/core"
	"github.com/copyleftdev/toon-mcp/internal/mcp"
)

// APIError is the REST error body. Details carries the positioned or
// counted failure data when the core error has any.
type APIError struct {
	Error   string           `json:"error"`
	Details *APIErrorDetails `json:"details,omitempty"`
}

type APIErrorDetails struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Expected   int    `json:"expected,omitempty"`
	Found      int    `json:"found,omitempty"`
}

type Server struct {
	logger  *slog.Logger
	mcp     *mcp.Server
	openAPI []byte
}

// New builds the REST server. mcpServer may be nil to serve REST only.
func New(logger *slog.Logger, mcpServer *mcp.Server) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger,
		mcp:     mcpServer,
		openAPI: openAPIDocument(),
	}
}

// Handler returns the routed handler with request-ID, CORS and logging
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/encode", s.handleEncode)
	mux.HandleFunc("POST /api/v1/decode", s.handleDecode)
	mux.HandleFunc("POST /api/v1/validate", s.handleValidate)
	mux.HandleFunc("POST /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api-docs", s.handleDocs)
	mux.HandleFunc("GET /api-docs/openapi.json", s.handleOpenAPI)
	if s.mcp != nil {
		mux.HandleFunc("/mcp", s.mcp.HandleRequest)
	}
	return s.withRequestID(s.withCORS(s.withLogging(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, core.HealthResponse{Status: "ok", Version: core.Version})
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req core.EncodeRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	value, err := core.ParseJSONInput(req.JSON)
	if err != nil {
		s.writeError(w, err)
		return
	}
	encoded, err := core.EncodeJSON(value, req.Options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, core.EncodeResponse{Toon: encoded})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req core.DecodeRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	value, err := core.DecodeToon(&req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, core.DecodeResponse{JSON: value})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req core.ValidateRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	// Invalid documents are still a 200; validity is the payload.
	s.writeJSON(w, http.StatusOK, core.ValidateToon(req.Toon, req.Strict))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var req core.StatsRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	value, err := core.ParseJSONInput(req.JSON)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := core.ComputeStats(value, req.Options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(docsPage))
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(s.openAPI)
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, APIError{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	body := APIError{Error: err.Error()}

	var ce *core.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case core.KindParseError:
			body.Details = &APIErrorDetails{Line: ce.Line, Column: ce.Column, Suggestion: ce.Suggestion}
		case core.KindLengthMismatch:
			body.Details = &APIErrorDetails{Expected: ce.Expected, Found: ce.Found}
		}
	}
	s.writeJSON(w, http.StatusBadRequest, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}
