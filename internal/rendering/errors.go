package rendering

import "fmt"

// Stages at which a render can fail.
const (
	StageInput     = "input"
	StageFonts     = "fonts"
	StageWatermark = "watermark"
	StageLayout    = "layout"
	StageOutput    = "output"
)

// RenderError reports a failed render. No PDF bytes accompany it.
type RenderError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("render %s: %v", msg, e.Cause)
	}
	return "render " + msg
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
