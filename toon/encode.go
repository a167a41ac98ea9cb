package toon

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type encoder struct {
	indentSize   int
	delimiter    string
	keyFolding   KeyFoldingMode
	flattenDepth int
	indentCache  []string
	escapeBuffer strings.Builder
}

func newEncoder(indentSize int, delimiter string, folding KeyFoldingMode, flattenDepth int) *encoder {
	return &encoder{
		indentSize:   indentSize,
		delimiter:    delimiter,
		keyFolding:   folding,
		flattenDepth: flattenDepth,
	}
}

var (
	numericRegex     = regexp.MustCompile(`^-?\d+(?:\.\d+)?(?:e[+-]?\d+)?$`)
	leadingZeroRegex = regexp.MustCompile(`^0\d+$`)
	// Bare keys never contain dots; dotted keys in the output only come
	// from key folding, so path expansion cannot misread a literal key.
	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	segmentRegex    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// normalizeValue reduces arbitrary Go values to the encoding/json data
// model (nil, bool, float64, string, []interface{}, map[string]interface{})
// before encoding.
func normalizeValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Ptr:
		if val.IsNil() {
			return nil, nil
		}
		return normalizeValue(val.Elem().Interface())
	case reflect.Interface:
		return normalizeValue(val.Elem().Interface())
	case reflect.Map:
		result := make(map[string]interface{})
		for _, key := range val.MapKeys() {
			keyStr := fmt.Sprintf("%v", key.Interface())
			normVal, err := normalizeValue(val.MapIndex(key).Interface())
			if err != nil {
				return nil, err
			}
			result[keyStr] = normVal
		}
		return result, nil
	case reflect.Slice, reflect.Array:
		result := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			normVal, err := normalizeValue(val.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			result[i] = normVal
		}
		return result, nil
	case reflect.Struct:
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var result interface{}
		err = json.Unmarshal(jsonBytes, &result)
		return result, err
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(val.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(val.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return val.Float(), nil
	default:
		return v, nil
	}
}

func (e *encoder) encode(v interface{}, depth int) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return e.formatNumber(val), nil
	case string:
		return e.encodeString(val), nil
	case map[string]interface{}:
		return e.encodeObject(val, depth)
	case []interface{}:
		return e.encodeArray(val, depth, "")
	default:
		return "", fmt.Errorf("unsupported type: %T", v)
	}
}

func (e *encoder) formatNumber(f float64) string {
	if f != f { // NaN
		return "null"
	}
	if math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (e *encoder) encodeString(s string) string {
	if e.needsQuoting(s) {
		return e.quoteString(s)
	}
	return s
}

func (e *encoder) getIndent(depth int) string {
	needed := depth + 1
	for len(e.indentCache) < needed {
		level := len(e.indentCache)
		e.indentCache = append(e.indentCache, strings.Repeat(" ", level*e.indentSize))
	}
	return e.indentCache[depth]
}

// needsQuoting reports whether a bare rendering of s would be read back as
// something else. The check is delimiter-independent: a string containing
// any potential delimiter is quoted no matter which delimiter is active, so
// documents survive re-encoding under different options.
func (e *encoder) needsQuoting(s string) bool {
	if len(s) == 0 {
		return true
	}

	switch s {
	case "true", "false", "null":
		return true
	}

	if s[0] == ' ' || s[len(s)-1] == ' ' {
		return true
	}

	for _, c := range s {
		if c < 0x20 {
			return true
		}
		switch c {
		case ':', '"', '\\', '[', ']', '{', '}', ',', '|':
			return true
		}
	}

	// A leading minus could read as a list item or a negative number.
	if s[0] == '-' {
		return true
	}

	if numericRegex.MatchString(strings.ToLower(s)) || leadingZeroRegex.MatchString(s) {
		return true
	}
	return false
}

func (e *encoder) quoteString(s string) string {
	e.escapeBuffer.Reset()
	e.escapeBuffer.WriteByte('"')

	for _, c := range s {
		switch c {
		case '\\':
			e.escapeBuffer.WriteString("\\\\")
		case '"':
			e.escapeBuffer.WriteString("\\\"")
		case '\n':
			e.escapeBuffer.WriteString("\\n")
		case '\r':
			e.escapeBuffer.WriteString("\\r")
		case '\t':
			e.escapeBuffer.WriteString("\\t")
		default:
			if c < 0x20 {
				fmt.Fprintf(&e.escapeBuffer, "\\u%04x", c)
			} else {
				e.escapeBuffer.WriteRune(c)
			}
		}
	}

	e.escapeBuffer.WriteByte('"')
	return e.escapeBuffer.String()
}

func (e *encoder) encodeKey(key string) string {
	if identifierRegex.MatchString(key) {
		return key
	}
	return e.quoteString(key)
}

func sortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// foldChain collapses a chain of single-key objects rooted at key into a
// dotted key. Only plain identifier segments fold, so the result is always
// emitted bare and can be expanded back without ambiguity.
func (e *encoder) foldChain(key string, value interface{}) (string, interface{}, bool) {
	if !segmentRegex.MatchString(key) {
		return "", nil, false
	}
	segs := []string{key}
	cur := value
	for {
		if e.flattenDepth > 0 && len(segs) >= e.flattenDepth {
			break
		}
		child, ok := cur.(map[string]interface{})
		if !ok || len(child) != 1 {
			break
		}
		var childKey string
		var childValue interface{}
		for k, v := range child {
			childKey, childValue = k, v
		}
		if !segmentRegex.MatchString(childKey) {
			break
		}
		segs = append(segs, childKey)
		cur = childValue
	}
	if len(segs) == 1 {
		return "", nil, false
	}
	return strings.Join(segs, "."), cur, true
}

func (e *encoder) encodeObject(obj map[string]interface{}, depth int) (string, error) {
	if len(obj) == 0 {
		return "", nil
	}

	var b strings.Builder
	indent := e.getIndent(depth)
	first := true

	for _, key := range sortedKeys(obj) {
		if !first {
			b.WriteByte('\n')
		}
		first = false

		value := obj[key]
		encodedKey := e.encodeKey(key)
		if e.keyFolding == FoldSafe {
			if foldedKey, foldedValue, ok := e.foldChain(key, value); ok {
				encodedKey, value = foldedKey, foldedValue
			}
		}

		switch v := value.(type) {
		case map[string]interface{}:
			b.WriteString(indent)
			b.WriteString(encodedKey)
			b.WriteByte(':')
			if len(v) > 0 {
				nested, err := e.encodeObject(v, depth+1)
				if err != nil {
					return "", err
				}
				if nested != "" {
					b.WriteByte('\n')
					b.WriteString(nested)
				}
			}
		case []interface{}:
			arrayStr, err := e.encodeArray(v, depth, encodedKey)
			if err != nil {
				return "", err
			}
			b.WriteString(indent)
			b.WriteString(arrayStr)
		default:
			encoded, err := e.encode(value, depth)
			if err != nil {
				return "", err
			}
			b.WriteString(indent)
			b.WriteString(encodedKey)
			b.WriteString(": ")
			b.WriteString(encoded)
		}
	}

	return b.String(), nil
}

// arrayHeader renders "key[N]:" with the delimiter declared after the
// count when it is not the comma default, e.g. "tags[3|]".
func (e *encoder) arrayHeader(key string, length int, withDelimiter bool) string {
	var b strings.Builder
	if key != "" {
		b.WriteString(key)
	}
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(length))
	if withDelimiter && e.delimiter != "," {
		b.WriteString(e.delimiter)
	}
	b.WriteString("]")
	return b.String()
}

func (e *encoder) encodeArray(arr []interface{}, depth int, key string) (string, error) {
	if len(arr) == 0 {
		return e.arrayHeader(key, 0, false) + ":", nil
	}

	if e.isTabular(arr) {
		return e.encodeTabular(arr, depth, key)
	}

	if e.isPrimitiveArray(arr) {
		return e.encodePrimitiveArray(arr, key)
	}

	return e.encodeListArray(arr, depth, key)
}

func (e *encoder) isPrimitive(v interface{}) bool {
	switch v.(type) {
	case nil, bool, float64, string:
		return true
	default:
		return false
	}
}

func (e *encoder) isPrimitiveArray(arr []interface{}) bool {
	for _, item := range arr {
		if !e.isPrimitive(item) {
			return false
		}
	}
	return true
}

// isTabular reports whether every element is a flat object over the same
// key set, so the array can collapse into a header plus one row per line.
func (e *encoder) isTabular(arr []interface{}) bool {
	first, ok := arr[0].(map[string]interface{})
	if !ok || len(first) == 0 {
		return false
	}
	for _, v := range first {
		if !e.isPrimitive(v) {
			return false
		}
	}

	for i := 1; i < len(arr); i++ {
		obj, ok := arr[i].(map[string]interface{})
		if !ok || len(obj) != len(first) {
			return false
		}
		for k, v := range obj {
			if !e.isPrimitive(v) {
				return false
			}
			if _, exists := first[k]; !exists {
				return false
			}
		}
	}
	return true
}

func (e *encoder) encodeTabular(arr []interface{}, depth int, key string) (string, error) {
	fields := sortedKeys(arr[0].(map[string]interface{}))

	var b strings.Builder
	b.WriteString(e.arrayHeader(key, len(arr), true))
	b.WriteByte('{')
	for i, field := range fields {
		if i > 0 {
			b.WriteString(e.delimiter)
		}
		b.WriteString(e.encodeKey(field))
	}
	b.WriteString("}:")

	indent := e.getIndent(depth + 1)
	for _, item := range arr {
		b.WriteByte('\n')
		b.WriteString(indent)
		obj := item.(map[string]interface{})
		for i, field := range fields {
			if i > 0 {
				b.WriteString(e.delimiter)
			}
			encoded, err := e.encode(obj[field], depth+1)
			if err != nil {
				return "", err
			}
			b.WriteString(encoded)
		}
	}

	return b.String(), nil
}

func (e *encoder) encodePrimitiveArray(arr []interface{}, key string) (string, error) {
	var b strings.Builder
	b.WriteString(e.arrayHeader(key, len(arr), true))
	b.WriteString(": ")

	for i, item := range arr {
		if i > 0 {
			b.WriteString(e.delimiter)
		}
		encoded, err := e.encode(item, 0)
		if err != nil {
			return "", err
		}
		b.WriteString(encoded)
	}

	return b.String(), nil
}

// encodeListArray writes one dash-prefixed item per line. Each item is
// rendered as a standalone document and re-indented behind the dash, so
// continuation lines always sit two columns past it.
func (e *encoder) encodeListArray(arr []interface{}, depth int, key string) (string, error) {
	var b strings.Builder
	b.WriteString(e.arrayHeader(key, len(arr), false))
	b.WriteByte(':')

	indent := e.getIndent(depth + 1)
	for _, item := range arr {
		doc, err := e.encode(item, 0)
		if err != nil {
			return "", err
		}
		b.WriteByte('\n')
		b.WriteString(indent)
		if doc == "" {
			// Empty object item.
			b.WriteByte('-')
			continue
		}
		lines := strings.Split(doc, "\n")
		b.WriteString("- ")
		b.WriteString(lines[0])
		for _, line := range lines[1:] {
			b.WriteByte('\n')
			b.WriteString(indent)
			b.WriteString("  ")
			b.WriteString(line)
		}
	}

	return b.String(), nil
}
