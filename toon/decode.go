package toon

import (
	"strconv"
	"strings"
)

type line struct {
	num     int
	indent  int
	content string
}

type decoder struct {
	opts DecodeOptions
}

func (d *decoder) decode(data string) (interface{}, error) {
	lines, err := splitLines(data)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return map[string]interface{}{}, nil
	}

	first := lines[0]
	if first.indent != 0 {
		return nil, &ParseError{
			Line:    first.num,
			Column:  1,
			Message: "unexpected indentation at document root",
		}
	}

	// An anonymous header makes the whole document an array.
	if strings.HasPrefix(first.content, "[") {
		value, rest, err := d.parseArrayAt(lines, 0, "", 1)
		if err != nil {
			return nil, err
		}
		if rest < len(lines) {
			extra := lines[rest]
			return nil, &ParseError{
				Line:    extra.num,
				Column:  extra.indent + 1,
				Message: "content after root array",
			}
		}
		return value, nil
	}

	// A single line with no key structure is a bare scalar.
	if len(lines) == 1 && !hasTopLevelColon(first.content) {
		return d.parseValue(first.content, first)
	}

	return d.parseObject(lines)
}

func splitLines(data string) ([]line, error) {
	var lines []line
	for i, raw := range strings.Split(data, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		indent := 0
		for indent < len(raw) && raw[indent] == ' ' {
			indent++
		}
		if indent < len(raw) && raw[indent] == '\t' {
			return nil, &ParseError{
				Line:       i + 1,
				Column:     indent + 1,
				Message:    "tab character in indentation",
				Suggestion: "use spaces for indentation",
			}
		}
		content := raw[indent:]
		if content == "" {
			continue
		}
		lines = append(lines, line{num: i + 1, indent: indent, content: content})
	}
	return lines, nil
}

// hasTopLevelColon reports whether content contains a colon outside of a
// quoted string, i.e. whether it can be a key line.
func hasTopLevelColon(content string) bool {
	inQuote := false
	for i := 0; i < len(content); i++ {
		c := content[i]
		if inQuote {
			if c == '\\' {
				i++
			} else if c == '"' {
				inQuote = false
			}
			continue
		}
		if c == '"' {
			inQuote = true
		} else if c == ':' {
			return true
		}
	}
	return false
}

// childBlock collects the lines nested under lines[i], returning the block
// and the index of the next sibling.
func childBlock(lines []line, i int, base int) ([]line, int) {
	j := i + 1
	for j < len(lines) && lines[j].indent > base {
		j++
	}
	return lines[i+1 : j], j
}

func (d *decoder) parseObject(lines []line) (map[string]interface{}, error) {
	base := lines[0].indent
	result := make(map[string]interface{})
	// Duplicates are checked on the raw key, not the map, because path
	// expansion may store a dotted key under a different name.
	seen := make(map[string]bool)

	i := 0
	for i < len(lines) {
		ln := lines[i]
		if ln.indent != base {
			return nil, &ParseError{
				Line:       ln.num,
				Column:     ln.indent + 1,
				Message:    "inconsistent indentation",
				Suggestion: "align sibling keys to the same column",
			}
		}

		key, quoted, next, err := d.parseKey(ln)
		if err != nil {
			return nil, err
		}

		if seen[key] {
			if d.opts.Strict {
				return nil, &ParseError{
					Line:       ln.num,
					Column:     ln.indent + 1,
					Message:    "duplicate key " + strconv.Quote(key),
					Suggestion: "remove the duplicate key",
				}
			}
		}
		seen[key] = true

		var value interface{}
		if next < len(ln.content) && ln.content[next] == '[' {
			value, i, err = d.parseArrayAt(lines, i, ln.content[next:], ln.indent+next+1)
			if err != nil {
				return nil, err
			}
		} else {
			if next >= len(ln.content) || ln.content[next] != ':' {
				return nil, &ParseError{
					Line:       ln.num,
					Column:     ln.indent + next + 1,
					Message:    "expected ':' after key",
				}
			}
			rest := strings.TrimLeft(ln.content[next+1:], " ")
			if rest != "" {
				value, err = d.parseValue(rest, ln)
				if err != nil {
					return nil, err
				}
				i++
			} else {
				block, j := childBlock(lines, i, base)
				if len(block) == 0 {
					value = map[string]interface{}{}
				} else {
					value, err = d.parseObject(block)
					if err != nil {
						return nil, err
					}
				}
				i = j
			}
		}

		d.insert(result, key, quoted, value)
	}

	return result, nil
}

// insert stores the key, expanding bare dotted keys into nested objects
// when path expansion is on. Quoted keys are always stored verbatim.
func (d *decoder) insert(obj map[string]interface{}, key string, quoted bool, value interface{}) {
	if d.opts.PathExpansion == ExpandSafe && !quoted && strings.Contains(key, ".") {
		segs := strings.Split(key, ".")
		expandable := true
		for _, seg := range segs {
			if !segmentRegex.MatchString(seg) {
				expandable = false
				break
			}
		}
		if expandable {
			cur := obj
			for _, seg := range segs[:len(segs)-1] {
				next, ok := cur[seg].(map[string]interface{})
				if !ok {
					next = make(map[string]interface{})
					cur[seg] = next
				}
				cur = next
			}
			cur[segs[len(segs)-1]] = value
			return
		}
	}
	obj[key] = value
}

// parseKey reads the key at the start of ln.content and returns it, whether
// it was quoted, and the offset of the character following it.
func (d *decoder) parseKey(ln line) (string, bool, int, error) {
	content := ln.content
	if content[0] == '"' {
		key, next, err := d.parseQuoted(content, 0, ln)
		if err != nil {
			return "", false, 0, err
		}
		return key, true, next, nil
	}
	for i := 0; i < len(content); i++ {
		if content[i] == ':' || content[i] == '[' {
			key := strings.TrimRight(content[:i], " ")
			if key == "" {
				return "", false, 0, &ParseError{
					Line:    ln.num,
					Column:  ln.indent + 1,
					Message: "empty key",
				}
			}
			return key, false, i, nil
		}
	}
	return "", false, 0, &ParseError{
		Line:       ln.num,
		Column:     ln.indent + 1,
		Message:    "expected ':' after key",
		Suggestion: "write entries as 'key: value'",
	}
}

// parseQuoted reads a quoted string starting at content[start] and returns
// the unescaped value and the offset past the closing quote.
func (d *decoder) parseQuoted(content string, start int, ln line) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(content) {
		c := content[i]
		if c == '"' {
			return b.String(), i + 1, nil
		}
		if c == '\\' {
			i++
			if i >= len(content) {
				break
			}
			switch content[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'u':
				if i+4 >= len(content) {
					return "", 0, &ParseError{
						Line:    ln.num,
						Column:  ln.indent + i + 1,
						Message: "truncated unicode escape",
					}
				}
				code, err := strconv.ParseUint(content[i+1:i+5], 16, 32)
				if err != nil {
					return "", 0, &ParseError{
						Line:    ln.num,
						Column:  ln.indent + i + 1,
						Message: "invalid unicode escape",
					}
				}
				b.WriteRune(rune(code))
				i += 4
			default:
				return "", 0, &ParseError{
					Line:    ln.num,
					Column:  ln.indent + i + 1,
					Message: "unknown escape sequence \\" + string(content[i]),
				}
			}
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, &ParseError{
		Line:       ln.num,
		Column:     ln.indent + start + 1,
		Message:    "unterminated string",
		Suggestion: "check for a missing closing quote",
	}
}

func (d *decoder) parseValue(s string, ln line) (interface{}, error) {
	if s == "" {
		return "", nil
	}
	if s[0] == '"' {
		value, next, err := d.parseQuoted(s, 0, ln)
		if err != nil {
			return nil, err
		}
		if next != len(s) {
			return nil, &ParseError{
				Line:    ln.num,
				Column:  ln.indent + next + 1,
				Message: "unexpected content after string",
			}
		}
		return value, nil
	}
	if s == "null" {
		return nil, nil
	}
	if !d.opts.CoerceTypes {
		return s, nil
	}
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if numericRegex.MatchString(strings.ToLower(s)) && !leadingZeroRegex.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return f, nil
		}
	}
	return s, nil
}

// parseArrayAt parses the array whose header starts at lines[i] with the
// given header text (content from the '[' onward) and column of the '['.
// It returns the array value and the index of the next sibling line.
func (d *decoder) parseArrayAt(lines []line, i int, header string, col int) (interface{}, int, error) {
	ln := lines[i]
	if header == "" {
		header = ln.content
	}

	count, delim, fields, rest, err := d.parseArrayHeader(header, ln, col)
	if err != nil {
		return nil, 0, err
	}

	if fields != nil {
		block, j := childBlock(lines, i, ln.indent)
		value, err := d.parseTabular(count, delim, fields, block, ln)
		if err != nil {
			return nil, 0, err
		}
		return value, j, nil
	}

	if rest != "" {
		cells := splitCells(rest, delim)
		if d.opts.Strict && len(cells) != count {
			return nil, 0, &LengthMismatchError{Expected: count, Found: len(cells)}
		}
		result := make([]interface{}, 0, len(cells))
		for _, cell := range cells {
			v, err := d.parseValue(cell, ln)
			if err != nil {
				return nil, 0, err
			}
			result = append(result, v)
		}
		return result, i + 1, nil
	}

	block, j := childBlock(lines, i, ln.indent)
	if len(block) == 0 {
		if d.opts.Strict && count != 0 {
			return nil, 0, &LengthMismatchError{Expected: count, Found: 0}
		}
		return []interface{}{}, j, nil
	}

	value, err := d.parseListItems(count, block, ln)
	if err != nil {
		return nil, 0, err
	}
	return value, j, nil
}

// parseArrayHeader parses "[N]" with an optional delimiter marker after the
// count and an optional "{fields}" section, followed by ':' and the inline
// remainder. col is the 1-based column of the '['.
func (d *decoder) parseArrayHeader(header string, ln line, col int) (count int, delim string, fields []string, rest string, err error) {
	fail := func(msg, suggestion string) error {
		return &ParseError{Line: ln.num, Column: col, Message: msg, Suggestion: suggestion}
	}

	i := 1
	start := i
	for i < len(header) && header[i] >= '0' && header[i] <= '9' {
		i++
	}
	if start == i {
		return 0, "", nil, "", fail("array header missing length", "declare the length, e.g. items[3]:")
	}
	count, _ = strconv.Atoi(header[start:i])

	delim = ","
	if i < len(header) {
		switch header[i] {
		case '\t':
			delim = "\t"
			i++
		case '|':
			delim = "|"
			i++
		case ',':
			i++
		}
	}
	if i >= len(header) || header[i] != ']' {
		return 0, "", nil, "", fail("unclosed array header", "close the length marker with ']'")
	}
	i++

	if i < len(header) && header[i] == '{' {
		end := strings.IndexByte(header[i:], '}')
		if end < 0 {
			return 0, "", nil, "", fail("unclosed field list", "close the field list with '}'")
		}
		for _, f := range splitCells(header[i+1:i+end], delim) {
			name := f
			if len(name) > 0 && name[0] == '"' {
				name, _, err = d.parseQuoted(name, 0, ln)
				if err != nil {
					return 0, "", nil, "", err
				}
			}
			fields = append(fields, name)
		}
		i += end + 1
	}

	if i >= len(header) || header[i] != ':' {
		return 0, "", nil, "", fail("expected ':' after array header", "")
	}
	rest = strings.TrimSpace(header[i+1:])
	return count, delim, fields, rest, nil
}

func (d *decoder) parseTabular(count int, delim string, fields []string, block []line, header line) ([]interface{}, error) {
	if d.opts.Strict && len(block) != count {
		return nil, &LengthMismatchError{Expected: count, Found: len(block)}
	}

	result := make([]interface{}, 0, len(block))
	for _, row := range block {
		cells := splitCells(row.content, delim)
		if len(cells) != len(fields) {
			if d.opts.Strict {
				return nil, &LengthMismatchError{Expected: len(fields), Found: len(cells)}
			}
			if len(cells) > len(fields) {
				cells = cells[:len(fields)]
			}
		}
		obj := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			if i >= len(cells) {
				break
			}
			v, err := d.parseValue(cells[i], row)
			if err != nil {
				return nil, err
			}
			obj[field] = v
		}
		result = append(result, obj)
	}
	return result, nil
}

func (d *decoder) parseListItems(count int, block []line, header line) ([]interface{}, error) {
	base := block[0].indent
	var result []interface{}

	i := 0
	for i < len(block) {
		ln := block[i]
		if ln.indent != base || ln.content[0] != '-' {
			return nil, &ParseError{
				Line:       ln.num,
				Column:     ln.indent + 1,
				Message:    "expected list item",
				Suggestion: "list items start with '- '",
			}
		}

		// Gather the item: the dash line plus any deeper continuation
		// lines, re-based so the item parses as its own document.
		first := strings.TrimLeft(ln.content[1:], " ")
		item := []line{}
		if first != "" {
			item = append(item, line{num: ln.num, indent: 0, content: first})
		}
		j := i + 1
		for j < len(block) && block[j].indent > base {
			cont := block[j]
			item = append(item, line{num: cont.num, indent: cont.indent - base - 2, content: cont.content})
			j++
		}

		value, err := d.parseListItem(item, ln)
		if err != nil {
			return nil, err
		}
		result = append(result, value)
		i = j
	}

	if d.opts.Strict && len(result) != count {
		return nil, &LengthMismatchError{Expected: count, Found: len(result)}
	}
	return result, nil
}

func (d *decoder) parseListItem(item []line, dash line) (interface{}, error) {
	if len(item) == 0 {
		// A bare dash is an empty object.
		return map[string]interface{}{}, nil
	}

	first := item[0]
	if strings.HasPrefix(first.content, "[") {
		value, rest, err := d.parseArrayAt(item, 0, "", 1)
		if err != nil {
			return nil, err
		}
		if rest < len(item) {
			extra := item[rest]
			return nil, &ParseError{
				Line:    extra.num,
				Column:  extra.indent + 1,
				Message: "content after array item",
			}
		}
		return value, nil
	}
	if len(item) == 1 && !hasTopLevelColon(first.content) {
		return d.parseValue(first.content, dash)
	}
	return d.parseObject(item)
}

// splitCells splits a delimited row into trimmed cells, leaving delimiter
// characters inside quoted strings alone.
func splitCells(s, delim string) []string {
	var cells []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if c == '"' {
				inQuote = false
			}
			continue
		}
		if c == '"' {
			inQuote = true
			cur.WriteByte(c)
			continue
		}
		if c == delim[0] {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}
