package extract

import "fmt"

// ExtractionError reports a response whose shape does not match the Path.
// Callers treat it as a failed extraction for that one source.
type ExtractionError struct {
	Source string
	Path   Path
	Depth  int
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract %s: %s at step %d of %s", e.Source, e.Reason, e.Depth, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
