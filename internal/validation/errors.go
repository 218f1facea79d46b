package validation

import (
	"errors"
	"fmt"
)

// errNotPDF is the cause of a NotPDFError.
var errNotPDF = errors.New("missing %PDF- header")

// FileReadError is returned when a PDF cannot be read from disk.
type FileReadError struct {
	Path  string
	Cause error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Cause)
}

func (e *FileReadError) Unwrap() error {
	return e.Cause
}

// NotPDFError is returned when a file does not start with a PDF header.
type NotPDFError struct {
	Path string
}

func (e *NotPDFError) Error() string {
	return fmt.Sprintf("%s is not a PDF file", e.Path)
}

func (e *NotPDFError) Unwrap() error {
	return errNotPDF
}
