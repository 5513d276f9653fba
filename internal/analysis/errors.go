package analysis

import "errors"

var (
	// ErrAnalysisFailed is the single opaque failure surfaced to callers.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrMalformedResponse marks a model response that does not match the schema.
	ErrMalformedResponse = errors.New("malformed analysis response")
)

// Error wraps the underlying cause of a failed analysis. Its message is always
// "analysis failed"; the cause is only reachable through errors.Is/As and Cause.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return ErrAnalysisFailed.Error() }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAnalysisFailed}
	}
	return []error{ErrAnalysisFailed, e.Err}
}

// Cause returns the wrapped error for logging.
func (e *Error) Cause() error { return e.Err }

func fail(op string, err error) error {
	return &Error{Op: op, Err: err}
}
