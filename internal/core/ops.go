package core

import (
	"encoding/json"
	"errors"
	"math"
	"unicode"

	"github.com/copyleftdev/toon-mcp/toon"
)

// Version is the service version reported by health checks, the MCP
// initialize handshake, and the CLI.
const Version = "1.0.0"

// ParseJSONInput normalizes tool input. A top-level string is a JSON
// document and gets reparsed; any other value passes through untouched.
func ParseJSONInput(v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return nil, &Error{Kind: KindInvalidJSON, Message: "invalid JSON input: " + err.Error()}
	}
	return parsed, nil
}

// BuildEncodeOptions translates wire options into codec options. The
// translation is total: unknown delimiter tokens mean comma and the indent
// is clamped, so no input can fail here.
func BuildEncodeOptions(in *EncodeOptionsInput) *toon.EncodeOptions {
	opts := toon.DefaultEncodeOptions()
	if in == nil {
		return opts
	}
	if in.Delimiter != nil {
		switch *in.Delimiter {
		case "tab":
			opts.Delimiter = "\t"
		case "pipe":
			opts.Delimiter = "|"
		default:
			opts.Delimiter = ","
		}
	}
	if in.Indent != nil {
		opts.Indent = *in.Indent
		if opts.Indent > 8 {
			opts.Indent = 8
		}
		if opts.Indent < 0 {
			opts.Indent = 0
		}
	}
	if in.FoldKeys != nil && *in.FoldKeys {
		opts.KeyFolding = toon.FoldSafe
	}
	if in.FlattenDepth != nil {
		opts.FlattenDepth = *in.FlattenDepth
	}
	return opts
}

// BuildDecodeOptions translates wire options into codec options, keeping
// the codec defaults for absent fields.
func BuildDecodeOptions(strict, coerceTypes, expandPaths *bool) *toon.DecodeOptions {
	opts := toon.DefaultDecodeOptions()
	if strict != nil {
		opts.Strict = *strict
	}
	if coerceTypes != nil {
		opts.CoerceTypes = *coerceTypes
	}
	if expandPaths != nil && *expandPaths {
		opts.PathExpansion = toon.ExpandSafe
	}
	return opts
}

// normalizeCodecError maps any codec failure onto the closed taxonomy.
// fallback names the kind used for errors outside the two typed classes.
func normalizeCodecError(err error, fallback ErrorKind) *Error {
	var pe *toon.ParseError
	if errors.As(err, &pe) {
		return &Error{
			Kind:       KindParseError,
			Message:    pe.Message,
			Line:       pe.Line,
			Column:     pe.Column,
			Suggestion: pe.Suggestion,
		}
	}
	var lm *toon.LengthMismatchError
	if errors.As(err, &lm) {
		return &Error{
			Kind:     KindLengthMismatch,
			Message:  lm.Error(),
			Expected: lm.Expected,
			Found:    lm.Found,
		}
	}
	return &Error{Kind: fallback, Message: err.Error()}
}

// EncodeJSON encodes an already-normalized value to TOON text.
func EncodeJSON(v interface{}, in *EncodeOptionsInput) (string, error) {
	out, err := toon.EncodeWithOptions(v, BuildEncodeOptions(in))
	if err != nil {
		return "", &Error{Kind: KindEncodeError, Message: "encoding failed: " + err.Error()}
	}
	return out, nil
}

// DecodeToon decodes TOON text back into a JSON value.
func DecodeToon(req *DecodeRequest) (interface{}, error) {
	opts := BuildDecodeOptions(req.Strict, req.CoerceTypes, req.ExpandPaths)
	v, err := toon.DecodeWithOptions(req.Toon, opts)
	if err != nil {
		return nil, normalizeCodecError(err, KindDecodeError)
	}
	return v, nil
}

// ValidateToon checks whether text parses as TOON. Invalidity is a normal
// result, never an error return.
func ValidateToon(text string, strict *bool) ValidateResponse {
	opts := BuildDecodeOptions(strict, nil, nil)
	_, err := toon.DecodeWithOptions(text, opts)
	if err == nil {
		return ValidateResponse{Valid: true}
	}
	ce := normalizeCodecError(err, KindDecodeError)
	return ValidateResponse{Valid: false, Error: &ValidationError{
		Kind:       ce.Kind,
		Message:    ce.Message,
		Line:       ce.Line,
		Column:     ce.Column,
		Suggestion: ce.Suggestion,
		Expected:   ce.Expected,
		Found:      ce.Found,
	}}
}

// savingsPercent is (before-after)/before*100 rounded to two decimals,
// defined as zero when before is zero.
func savingsPercent(before, after int) float64 {
	if before == 0 {
		return 0.0
	}
	pct := float64(before-after) / float64(before) * 100.0
	return math.Round(pct*100.0) / 100.0
}

// ComputeStats measures an already-normalized value in compact JSON and in
// TOON under the given options.
func ComputeStats(v interface{}, in *EncodeOptionsInput) (*StatsResponse, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, &Error{Kind: KindSerializationError, Message: "serialization failed: " + err.Error()}
	}
	jsonText := string(jsonBytes)

	toonText, err := EncodeJSON(v, in)
	if err != nil {
		return nil, err
	}

	jsonStats := FormatStats{Bytes: len(jsonText), TokensApprox: EstimateTokens(jsonText)}
	toonStats := FormatStats{Bytes: len(toonText), TokensApprox: EstimateTokens(toonText)}

	return &StatsResponse{
		JSON: jsonStats,
		Toon: toonStats,
		Savings: SavingsStats{
			BytesPercent:  savingsPercent(jsonStats.Bytes, toonStats.Bytes),
			TokensPercent: savingsPercent(jsonStats.TokensApprox, toonStats.TokensApprox),
		},
	}, nil
}

// EstimateTokens approximates the token count of text: each maximal run of
// letters, digits or underscores counts one, every other non-whitespace
// rune counts one, whitespace counts nothing.
func EstimateTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				count++
				inWord = true
			}
		default:
			count++
			inWord = false
		}
	}
	return count
}

// FormatJSONOutput renders a value as JSON text; "json_pretty" selects
// two-space indentation, anything else is compact.
func FormatJSONOutput(v interface{}, format string) (string, error) {
	var (
		out []byte
		err error
	)
	if format == "json_pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return "", &Error{Kind: KindSerializationError, Message: "serialization failed: " + err.Error()}
	}
	return string(out), nil
}
