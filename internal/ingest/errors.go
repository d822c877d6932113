package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports a required field that is absent or malformed.
// Row is the zero-based position of the record within its table, or -1 when
// the error concerns the table as a whole.
type ParseError struct {
	Table string
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse %s", e.Table)
	if e.Row >= 0 {
		fmt.Fprintf(&b, "[%d]", e.Row)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ".%s", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (%q)", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrMissing is wrapped by ParseError when a required field is absent.
var ErrMissing = errors.New("required field missing")
