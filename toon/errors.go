package toon

import "fmt"

// ParseError reports a syntax failure with its position in the document.
// Line and Column are 1-based. Suggestion, when non-empty, is a short hint
// for fixing the input.
type ParseError struct {
	Line       int
	Column     int
	Message    string
	Suggestion string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// LengthMismatchError reports an array whose declared length disagrees with
// its contents, or a tabular row whose cell count disagrees with the header
// fields.
type LengthMismatchError struct {
	Expected int
	Found    int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("length mismatch: expected %d, found %d", e.Expected, e.Found)
}
