package artifacts

import "fmt"

// PersistError is a failure to write a run artifact.
type PersistError struct {
	Path    string
	Message string
	Cause   error
}

func (e *PersistError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persist %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("persist %s: %s", e.Path, e.Message)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}
