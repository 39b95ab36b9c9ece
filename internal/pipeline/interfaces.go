package pipeline

import (
	"context"

	"github.com/dvloznov/paypal-ledger/internal/receipt"
)

// Ledger is the durable store of recorded transactions.
// Exists and Append are not atomic together; see DESIGN.md.
type Ledger interface {
	// Exists reports whether a transaction with this ID is already recorded.
	Exists(ctx context.Context, transactionID string) (bool, error)

	// Append records the transaction as a new ledger row.
	Append(ctx context.Context, tx receipt.Transaction) error
}

// Alerter notifies a human operator. A nil error means the alert was accepted.
type Alerter interface {
	Send(ctx context.Context, subject, body string) error
}

// Archiver keeps a copy of the raw webhook payload for later replay.
type Archiver interface {
	// Archive stores raw under the email hash and returns its location.
	Archive(ctx context.Context, emailHash string, raw []byte) (string, error)
}

// Recorder counts pipeline outcomes.
type Recorder interface {
	Outcome(ctx context.Context, outcome string)
	DualFailure(ctx context.Context)
}
