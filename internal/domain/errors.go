package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRowShape marks a row that is missing one of its mandatory fields.
	// Such rows are dropped and never reach the caller.
	ErrRowShape = errors.New("row shape")

	// ErrFieldParse marks a field whose text could not be converted. The
	// field takes its default and the row is kept.
	ErrFieldParse = errors.New("field parse")

	// ErrDocumentLocate is returned when no parser backend can find a table
	// body in the fetched document. It fails the whole pass.
	ErrDocumentLocate = errors.New("table body not found")
)

// RowShapeError reports which mandatory field was missing and how many
// tokens the row produced before running out.
type RowShapeError struct {
	Field  string
	Tokens int
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("row shape: missing %s after %d tokens", e.Field, e.Tokens)
}

func (e *RowShapeError) Unwrap() error { return ErrRowShape }

// FieldParseWarning describes a field conversion that fell back to its
// default value.
type FieldParseWarning struct {
	Field string
	Raw   string
	Err   error
}

func (w *FieldParseWarning) Error() string {
	if w.Err != nil {
		return fmt.Sprintf("field parse: %s %q: %v", w.Field, w.Raw, w.Err)
	}
	return fmt.Sprintf("field parse: %s %q", w.Field, w.Raw)
}

func (w *FieldParseWarning) Unwrap() error { return ErrFieldParse }
