package functions

import (
	"errors"
	"fmt"
)

// Dispatch error kinds. A dispatch never returns these to the relay; they
// are converted into an ErrorResult for the agent.
var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrFunctionFailed   = errors.New("function failed")
	ErrFunctionTimeout  = errors.New("function timed out")
)

// CallError describes why a single call produced no result.
type CallError struct {
	Kind error
	Name string
	Err  error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Name, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Name, e.Kind, e.Err)
}

func (e *CallError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Result renders the error object sent back to the agent.
func (e *CallError) Result() ErrorResult {
	switch e.Kind {
	case ErrFunctionNotFound:
		return Errorf("Function '%s' not found.", e.Name)
	case ErrInvalidArguments, ErrFunctionTimeout:
		return Errorf("Function failed with: %v: %v", e.Kind, e.Err)
	default:
		return Errorf("Function failed with: %v", e.Err)
	}
}
