package tokfix

import "fmt"

// ParseError reports a tokenizer document that is not well-formed JSON.
// It is fatal to the fix operation.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("tokfix: parse tokenizer: %v", e.Err)
	}
	return fmt.Sprintf("tokfix: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError describes a merges field the fixer does not recognise.
// It is reported but never fatal; no files are written when it occurs.
type ShapeError struct {
	Field  string
	Index  int // -1 when the field itself has the wrong shape
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("tokfix: unexpected %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("tokfix: unexpected %s[%d]: %s", e.Field, e.Index, e.Reason)
}
