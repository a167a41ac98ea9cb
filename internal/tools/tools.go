// Package tools registers the TOON tool set on an MCP server. Each tool
// is a thin adapter over the core operations; all option handling and
// error classification happens there.
package tools

import (
	"context"
	"errors"

	"github.com/copyleftdev/toon-mcp/internal/core"
	"github.com/copyleftdev/toon-mcp/internal/mcp"
)

// Register adds the TOON tools to the server.
func Register(s *mcp.Server) {
	s.RegisterTool(
		mcp.NewTool("toon_ping", "Check that the TOON server is reachable."),
		handlePing,
	)

	s.RegisterTool(
		mcp.NewTool("toon_encode", "Encode a JSON value as TOON text.").
			AddParam("json", mcp.TypeAny, "JSON value to encode; a string is parsed as a JSON document", true).
			AddParam("delimiter", mcp.TypeString, "Cell delimiter: 'tab' or 'pipe'; anything else means comma", false).
			AddParam("indent", mcp.TypeInteger, "Indentation width in spaces, at most 8", false).
			AddParam("fold_keys", mcp.TypeBoolean, "Collapse single-key object chains into dotted keys", false).
			AddParam("flatten_depth", mcp.TypeInteger, "Maximum folded segments; 0 means unbounded", false),
		handleEncode,
	)

	s.RegisterTool(
		mcp.NewTool("toon_decode", "Decode TOON text back into JSON.").
			AddParam("toon", mcp.TypeString, "TOON document to decode", true).
			AddParam("strict", mcp.TypeBoolean, "Enforce length markers and duplicate keys (default true)", false).
			AddParam("coerce_types", mcp.TypeBoolean, "Read unquoted scalars as numbers and booleans (default true)", false).
			AddParam("expand_paths", mcp.TypeBoolean, "Rebuild nested objects from dotted keys", false).
			AddParam("output_format", mcp.TypeString, "'json_pretty' for indented output, otherwise compact", false),
		handleDecode,
	)

	s.RegisterTool(
		mcp.NewTool("toon_validate", "Check whether text parses as TOON.").
			AddParam("toon", mcp.TypeString, "TOON document to validate", true).
			AddParam("strict", mcp.TypeBoolean, "Enforce length markers and duplicate keys (default true)", false).
			AddOutputParam("valid", mcp.TypeBoolean, "Whether the document parsed", true).
			AddOutputParam("error", mcp.TypeObject, "Failure detail when invalid", false),
		handleValidate,
	)

	s.RegisterTool(
		mcp.NewTool("toon_stats", "Compare the size of a value in compact JSON and in TOON.").
			AddParam("json", mcp.TypeAny, "JSON value to measure; a string is parsed as a JSON document", true).
			AddParam("delimiter", mcp.TypeString, "Cell delimiter: 'tab' or 'pipe'; anything else means comma", false).
			AddParam("indent", mcp.TypeInteger, "Indentation width in spaces, at most 8", false).
			AddParam("fold_keys", mcp.TypeBoolean, "Collapse single-key object chains into dotted keys", false).
			AddParam("flatten_depth", mcp.TypeInteger, "Maximum folded segments; 0 means unbounded", false).
			AddOutputParam("json", mcp.TypeObject, "Bytes and approximate tokens of the compact JSON form", true).
			AddOutputParam("toon", mcp.TypeObject, "Bytes and approximate tokens of the TOON form", true).
			AddOutputParam("savings", mcp.TypeObject, "Relative reduction in percent", true),
		handleStats,
	)
}

func handlePing(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	return mcp.NewToolResponseText("pong"), nil
}

func handleEncode(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	var args core.EncodeRequest
	if err := req.Bind(&args); err != nil {
		return nil, mcp.NewToolErrorInvalidParams("invalid arguments: "+err.Error(), nil)
	}

	value, err := core.ParseJSONInput(args.JSON)
	if err != nil {
		return nil, mapCoreError(err)
	}
	encoded, err := core.EncodeJSON(value, args.Options())
	if err != nil {
		return nil, mapCoreError(err)
	}
	return mcp.NewToolResponseText(encoded), nil
}

func handleDecode(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	var args core.DecodeRequest
	if err := req.Bind(&args); err != nil {
		return nil, mcp.NewToolErrorInvalidParams("invalid arguments: "+err.Error(), nil)
	}

	value, err := core.DecodeToon(&args)
	if err != nil {
		return nil, mapCoreError(err)
	}

	format := ""
	if args.OutputFormat != nil {
		format = *args.OutputFormat
	}
	text, err := core.FormatJSONOutput(value, format)
	if err != nil {
		return nil, mapCoreError(err)
	}
	return mcp.NewToolResponseText(text), nil
}

func handleValidate(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	var args core.ValidateRequest
	if err := req.Bind(&args); err != nil {
		return nil, mcp.NewToolErrorInvalidParams("invalid arguments: "+err.Error(), nil)
	}
	return mcp.NewToolResponseStructured(core.ValidateToon(args.Toon, args.Strict)), nil
}

func handleStats(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	var args core.StatsRequest
	if err := req.Bind(&args); err != nil {
		return nil, mcp.NewToolErrorInvalidParams("invalid arguments: "+err.Error(), nil)
	}

	value, err := core.ParseJSONInput(args.JSON)
	if err != nil {
		return nil, mapCoreError(err)
	}
	stats, err := core.ComputeStats(value, args.Options())
	if err != nil {
		return nil, mapCoreError(err)
	}
	return mcp.NewToolResponseStructured(stats), nil
}

// mapCoreError converts a core failure into the protocol error the client
// sees. Input and document problems are invalid params with structured
// detail; everything else is an internal error.
func mapCoreError(err error) error {
	var ce *core.Error
	if !errors.As(err, &ce) {
		return mcp.NewToolErrorInternal(err.Error())
	}

	switch ce.Kind {
	case core.KindParseError:
		data := map[string]interface{}{
			"line":   ce.Line,
			"column": ce.Column,
		}
		if ce.Suggestion != "" {
			data["suggestion"] = ce.Suggestion
		}
		return mcp.NewToolErrorInvalidParams(ce.Error(), data)
	case core.KindLengthMismatch:
		return mcp.NewToolErrorInvalidParams(ce.Error(), map[string]interface{}{
			"expected": ce.Expected,
			"found":    ce.Found,
		})
	case core.KindInvalidJSON:
		return mcp.NewToolErrorInvalidParams(ce.Message, nil)
	default:
		return mcp.NewToolErrorInternal(ce.Message)
	}
}
