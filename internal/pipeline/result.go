package pipeline

import "github.com/dvloznov/paypal-ledger/internal/receipt"

// Outcome is the terminal state of one inbound message.
type Outcome string

const (
	OutcomeRejected         Outcome = "rejected"          // payload unparseable
	OutcomeSkipped          Outcome = "skipped"           // not a PayPal receipt
	OutcomeRejectedSoft     Outcome = "rejected_soft"     // missing body or template mismatch
	OutcomeDuplicateSkipped Outcome = "duplicate_skipped" // already in the ledger
	OutcomeFailed           Outcome = "failed"            // ledger unavailable
	OutcomeRecorded         Outcome = "recorded"
)

// Class tells the sender what to do with the delivery.
type Class string

const (
	// ClassSuccess: recorded or confirmed duplicate.
	ClassSuccess Class = "success"
	// ClassSoftReject: content problem, do not retry.
	ClassSoftReject Class = "soft_reject"
	// ClassRejected: payload unparseable, do not retry.
	ClassRejected Class = "rejected"
	// ClassRetry: transient failure, retry the delivery.
	ClassRetry Class = "retry"
)

// Class returns the response class for o.
func (o Outcome) Class() Class {
	switch o {
	case OutcomeRecorded, OutcomeDuplicateSkipped:
		return ClassSuccess
	case OutcomeSkipped, OutcomeRejectedSoft:
		return ClassSoftReject
	case OutcomeFailed:
		return ClassRetry
	default:
		return ClassRejected
	}
}

// Result is what Process decided for one message.
type Result struct {
	Outcome   Outcome
	EmailHash string

	// Transaction is set once the receipt parsed, including on ledger failure.
	Transaction *receipt.Transaction

	// Err explains every outcome other than Recorded and DuplicateSkipped.
	Err error
}

// Class is shorthand for r.Outcome.Class().
func (r Result) Class() Class {
	return r.Outcome.Class()
}

// Retry reports whether the sender should redeliver the message.
func (r Result) Retry() bool {
	return r.Class() == ClassRetry
}
