package dither

import "fmt"

// ImageDecodeError represents a malformed or unreadable source image
type ImageDecodeError struct {
	Message string
	Cause   error
}

func (e *ImageDecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image decode error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("image decode error: %s", e.Message)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Cause
}
