package format

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for formats without a converter in the
	// requested direction.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInputTooLarge is returned when an upload exceeds the input limit.
	ErrInputTooLarge = errors.New("input too large")
)

// FormatParseError reports malformed input for one format. The document
// being edited is never touched when an import fails.
type FormatParseError struct {
	Format Format
	Err    error
}

func (e *FormatParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *FormatParseError) Unwrap() error { return e.Err }

// ExportError reports a failure to serialise a document.
type ExportError struct {
	Format Format
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ExternalCodecError wraps failures, panics, timeouts and cancellations of
// the DOCX codec.
type ExternalCodecError struct {
	Op  string
	Err error
}

func (e *ExternalCodecError) Error() string {
	return fmt.Sprintf("docx codec %s: %v", e.Op, e.Err)
}

func (e *ExternalCodecError) Unwrap() error { return e.Err }

func parseErr(f Format, err error) error {
	return &FormatParseError{Format: f, Err: err}
}
