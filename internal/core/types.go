// Package core implements the transport-agnostic TOON operations shared by
// the MCP tool set and the REST API: input normalization, option
// translation, codec invocation, error classification, and the size and
// token savings metric.
package core

import "fmt"

// ErrorKind is the closed set of failure classes surfaced to clients.
type ErrorKind string

const (
	KindParseError         ErrorKind = "parse_error"
	KindLengthMismatch     ErrorKind = "length_mismatch"
	KindEncodeError        ErrorKind = "encode_error"
	KindDecodeError        ErrorKind = "decode_error"
	KindInvalidJSON        ErrorKind = "invalid_json"
	KindSerializationError ErrorKind = "serialization_error"
)

// Error is the normalized operation failure. Line, Column and Suggestion
// are set for parse errors; Expected and Found for length mismatches.
type Error struct {
	Kind       ErrorKind
	Message    string
	Line       int
	Column     int
	Suggestion string
	Expected   int
	Found      int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindParseError:
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	case KindLengthMismatch:
		return fmt.Sprintf("length mismatch: expected %d, found %d", e.Expected, e.Found)
	default:
		return e.Message
	}
}

// EncodeOptionsInput is the wire form of the encoding options. Every field
// is optional; absent fields take the codec defaults.
type EncodeOptionsInput struct {
	Delimiter    *string `json:"delimiter,omitempty"`
	Indent       *int    `json:"indent,omitempty"`
	FoldKeys     *bool   `json:"fold_keys,omitempty"`
	FlattenDepth *int    `json:"flatten_depth,omitempty"`
}

// EncodeRequest carries the value to encode. JSON may be any JSON value; a
// top-level string is treated as a JSON document and reparsed.
type EncodeRequest struct {
	JSON         interface{} `json:"json"`
	Delimiter    *string     `json:"delimiter,omitempty"`
	Indent       *int        `json:"indent,omitempty"`
	FoldKeys     *bool       `json:"fold_keys,omitempty"`
	FlattenDepth *int        `json:"flatten_depth,omitempty"`
}

// Options returns the embedded encoding options.
func (r *EncodeRequest) Options() *EncodeOptionsInput {
	return &EncodeOptionsInput{
		Delimiter:    r.Delimiter,
		Indent:       r.Indent,
		FoldKeys:     r.FoldKeys,
		FlattenDepth: r.FlattenDepth,
	}
}

type DecodeRequest struct {
	Toon         string  `json:"toon"`
	Strict       *bool   `json:"strict,omitempty"`
	CoerceTypes  *bool   `json:"coerce_types,omitempty"`
	ExpandPaths  *bool   `json:"expand_paths,omitempty"`
	OutputFormat *string `json:"output_format,omitempty"`
}

type ValidateRequest struct {
	Toon   string `json:"toon"`
	Strict *bool  `json:"strict,omitempty"`
}

type StatsRequest struct {
	JSON         interface{} `json:"json"`
	Delimiter    *string     `json:"delimiter,omitempty"`
	Indent       *int        `json:"indent,omitempty"`
	FoldKeys     *bool       `json:"fold_keys,omitempty"`
	FlattenDepth *int        `json:"flatten_depth,omitempty"`
}

func (r *StatsRequest) Options() *EncodeOptionsInput {
	return &EncodeOptionsInput{
		Delimiter:    r.Delimiter,
		Indent:       r.Indent,
		FoldKeys:     r.FoldKeys,
		FlattenDepth: r.FlattenDepth,
	}
}

type EncodeResponse struct {
	Toon string `json:"toon"`
}

type DecodeResponse struct {
	JSON interface{} `json:"json"`
}

// ValidationError is the client-facing detail of an invalid document.
type ValidationError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Line       int       `json:"line,omitempty"`
	Column     int       `json:"column,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Expected   int       `json:"expected,omitempty"`
	Found      int       `json:"found,omitempty"`
}

// ValidateResponse reports validity as a normal result. Error is set
// exactly when Valid is false.
type ValidateResponse struct {
	Valid bool             `json:"valid"`
	Error *ValidationError `json:"error,omitempty"`
}

// FormatStats describes one serialization of the input value.
type FormatStats struct {
	Bytes        int `json:"bytes"`
	TokensApprox int `json:"tokens_approx"`
}

// SavingsStats holds the relative size reduction of TOON over compact
// JSON, in percent rounded to two decimals.
type SavingsStats struct {
	BytesPercent  float64 `json:"bytes_percent"`
	TokensPercent float64 `json:"tokens_percent"`
}

type StatsResponse struct {
	JSON    FormatStats  `json:"json"`
	Toon    FormatStats  `json:"toon"`
	Savings SavingsStats `json:"savings"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
