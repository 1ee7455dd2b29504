package orbitsim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrbit is returned when an orbit is still invalid after its repair pass.
	ErrInvalidOrbit = errors.New("orbitsim: invalid orbit")
	// ErrMissingReference is returned when the body or its attractor is gone.
	ErrMissingReference = errors.New("orbitsim: missing body or attractor")
	// ErrCyclicHierarchy is returned when bodies orbit each other in a loop.
	ErrCyclicHierarchy = errors.New("orbitsim: cyclic attractor hierarchy")
	// ErrUnknownBody is returned when a body handle or name is not known.
	ErrUnknownBody = errors.New("orbitsim: unknown body")
)

// PropagationError wraps the failure of a single body during a tick.
type PropagationError struct {
	Body string
	Err  error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("orbitsim: body %q: %v", e.Body, e.Err)
}

func (e *PropagationError) Unwrap() error {
	return e.Err
}
