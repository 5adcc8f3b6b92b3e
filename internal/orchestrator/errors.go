package orchestrator

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query must not be empty")

// SynthesisError reports a failed theme synthesis. It fails the whole query.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("theme synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
