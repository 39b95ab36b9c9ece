package pipeline

import "fmt"

// ShapeError means the webhook payload could not be decoded.
type ShapeError struct {
	Reason string
	Cause  error
}

func (e *ShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid payload: %s: %v", e.Reason, e.Cause)
	}
	return "invalid payload: " + e.Reason
}

func (e *ShapeError) Unwrap() error { return e.Cause }

// UnexpectedContentError means the email is not a receipt this pipeline handles.
type UnexpectedContentError struct {
	Reason  string
	Subject string
}

func (e *UnexpectedContentError) Error() string {
	return fmt.Sprintf("%s (subject %q)", e.Reason, e.Subject)
}

// PersistenceError means the ledger could not be read or written.
type PersistenceError struct {
	TransactionID string
	Op            string // "lookup" or "append"
	Cause         error

	// AlertFailed is set when the operator alert for this failure also failed.
	AlertFailed bool
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s failed for transaction %s: %v", e.Op, e.TransactionID, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
