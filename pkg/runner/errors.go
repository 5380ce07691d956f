package runner

import "fmt"

// CollaboratorError marks a failure of an external collaborator: the step
// executor, the observation reader, or the trace store. It is fatal to the
// current episode; the training loop decides whether the run continues.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
