// Package toon implements the TOON (Token-Oriented Object Notation) format.
// TOON is a line-oriented, indentation-based text format that encodes the JSON
// data model with explicit structure and minimal quoting, spending fewer
// language-model tokens than the equivalent JSON.
//
// Objects place one "key: value" field per line and indent nested objects one
// level. Arrays carry an explicit length marker: arrays of primitives are
// written inline ("tags[3]: a,b,c"), uniform arrays of flat objects collapse
// into a tabular block ("users[2]{id,name}:" followed by one row per line),
// and everything else uses list form with one dash-prefixed item per line.
// Tab and pipe delimiters are declared inside the array header
// ("tags[3|]: a|b|c"), so a document always decodes without out-of-band
// configuration.
package toon

// KeyFoldingMode controls whether chains of single-key objects are folded
// into a dotted key on encode.
type KeyFoldingMode int

const (
	FoldOff KeyFoldingMode = iota

	// FoldSafe folds only chains whose keys are plain identifiers without
	// dots, so the folded form expands back without ambiguity.
	FoldSafe
)

// PathExpansionMode controls whether dotted keys are expanded back into
// nested objects on decode. The inverse of key folding.
type PathExpansionMode int

const (
	ExpandOff PathExpansionMode = iota

	// ExpandSafe expands a bare dotted key only when every segment is a
	// plain identifier and the expansion does not collide with a
	// non-object value already present.
	ExpandSafe
)

// EncodeOptions configures TOON encoding behavior.
type EncodeOptions struct {
	Indent       int            // Number of spaces per indentation level (default: 2)
	Delimiter    string         // Delimiter for arrays and tabular data: ",", "\t" or "|" (default: ",")
	KeyFolding   KeyFoldingMode // Fold single-key object chains into dotted keys (default: off)
	FlattenDepth int            // Maximum segments in a folded key; 0 means unbounded
}

// DecodeOptions configures TOON decoding behavior.
type DecodeOptions struct {
	Strict        bool              // Enforce length markers, row widths, duplicate keys and indentation (default: true)
	CoerceTypes   bool              // Read bare scalars as numbers and booleans (default: true)
	PathExpansion PathExpansionMode // Expand dotted keys into nested objects (default: off)
}

// DefaultEncodeOptions returns the default encoding options.
func DefaultEncodeOptions() *EncodeOptions {
	return &EncodeOptions{Indent: 2, Delimiter: ","}
}

// DefaultDecodeOptions returns the default decoding options.
func DefaultDecodeOptions() *DecodeOptions {
	return &DecodeOptions{Strict: true, CoerceTypes: true}
}

// Encode converts a Go value to TOON format using default options.
func Encode(v interface{}) (string, error) {
	return EncodeWithOptions(v, nil)
}

// EncodeWithOptions converts a Go value to TOON format with custom options.
// A nil opts is equivalent to DefaultEncodeOptions. The indent width is
// clamped to [1, 8]; an unrecognized delimiter falls back to comma. A zero
// or negative indent is raised to one space, since a zero-width indent
// would erase nesting and make the output denote a different value.
func EncodeWithOptions(v interface{}, opts *EncodeOptions) (string, error) {
	if opts == nil {
		opts = DefaultEncodeOptions()
	}
	indent := opts.Indent
	if indent < 1 {
		indent = 1
	}
	if indent > 8 {
		indent = 8
	}
	delimiter := opts.Delimiter
	switch delimiter {
	case ",", "\t", "|":
	default:
		delimiter = ","
	}

	encoder := newEncoder(indent, delimiter, opts.KeyFolding, opts.FlattenDepth)
	normalized, err := normalizeValue(v)
	if err != nil {
		return "", err
	}
	return encoder.encode(normalized, 0)
}

// Decode parses TOON format using default options.
func Decode(data string) (interface{}, error) {
	return DecodeWithOptions(data, nil)
}

// DecodeWithOptions parses TOON format with custom options. A nil opts is
// equivalent to DefaultDecodeOptions. Syntax failures are reported as
// *ParseError and array or row count disagreements as *LengthMismatchError.
func DecodeWithOptions(data string, opts *DecodeOptions) (interface{}, error) {
	if opts == nil {
		opts = DefaultDecodeOptions()
	}
	d := &decoder{opts: *opts}
	return d.decode(data)
}
