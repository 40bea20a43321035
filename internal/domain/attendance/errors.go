package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrUploadNotFound = errors.New("attendance upload not found")
	ErrImportParse    = errors.New("attendance file is malformed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ImportParseError marks a file that cannot be read as a scan export at all.
// It is recorded on the upload rather than returned to callers.
type ImportParseError struct {
	Line   int
	Reason string
}

func (e *ImportParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

func (e *ImportParseError) Unwrap() error { return ErrImportParse }

// UnmatchedName is a device name that resolved to no single employee. The
// import continues and reports it for review.
type UnmatchedName struct {
	Name  string `json:"name"`
	Scans int    `json:"scans"`
}

func (w UnmatchedName) String() string {
	return fmt.Sprintf("%s (%d scans)", w.Name, w.Scans)
}
