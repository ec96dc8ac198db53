package ledger

import "fmt"

// WriteError is returned when an append could not be confirmed durable.
// A run that hits it must fail: the next run could reprocess the item.
type WriteError struct {
	Backend Backend
	ID      string
	Message string
	Cause   error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("ledger %s: append %q: %s", e.Backend, e.ID, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// LoadError is returned when a ledger cannot be opened or read.
type LoadError struct {
	Backend Backend
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("ledger %s: %s", e.Backend, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
