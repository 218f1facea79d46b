package fonts

import "fmt"

// RegistrationError represents a font that could not be loaded
type RegistrationError struct {
	Variant Variant
	Message string
	Cause   error
}

func (e *RegistrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("font registration error (%s): %s: %v", e.Variant.FileName(), e.Message, e.Cause)
	}
	return fmt.Sprintf("font registration error (%s): %s", e.Variant.FileName(), e.Message)
}

func (e *RegistrationError) Unwrap() error {
	return e.Cause
}
