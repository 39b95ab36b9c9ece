package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/paypal-ledger/internal/logger"
	"github.com/dvloznov/paypal-ledger/internal/receipt"
	"github.com/rs/zerolog"
)

// DefaultSubjectMarker is the subject line PayPal uses for debit card receipts.
const DefaultSubjectMarker = "Receipt for your PayPal Debit Card purchase"

// DualFailureMarker tags the log line written when the ledger write and the
// operator alert both failed, so monitoring can match it exactly.
const DualFailureMarker = "DUAL_FAILURE"

// Deps are the collaborators of a Processor. Ledger and Alerter are required.
type Deps struct {
	Ledger   Ledger
	Alerter  Alerter
	Archiver Archiver // optional
	Recorder Recorder // optional
}

// Processor turns one inbound email into a ledger row, an alert, or both.
// It holds no per-message state and is safe for concurrent use.
type Processor struct {
	ledger        Ledger
	alerter       Alerter
	archiver      Archiver
	recorder      Recorder
	subjectMarker string
}

// NewProcessor creates a Processor. An empty subjectMarker selects
// DefaultSubjectMarker.
func NewProcessor(deps Deps, subjectMarker string) (*Processor, error) {
	if deps.Ledger == nil {
		return nil, errors.New("NewProcessor: ledger is required")
	}
	if deps.Alerter == nil {
		return nil, errors.New("NewProcessor: alerter is required")
	}
	if subjectMarker == "" {
		subjectMarker = DefaultSubjectMarker
	}
	return &Processor{
		ledger:        deps.Ledger,
		alerter:       deps.Alerter,
		archiver:      deps.Archiver,
		recorder:      deps.Recorder,
		subjectMarker: subjectMarker,
	}, nil
}

// Process handles one raw webhook payload. It never retries internally; the
// returned Result's Class tells the sender whether redelivery can help.
func (p *Processor) Process(ctx context.Context, raw []byte) Result {
	log := logger.FromContext(ctx)

	// 1. Decode the payload.
	msg, err := DecodeMessage(raw)
	if err != nil {
		log.Error().Err(err).Msg("No usable JSON payload received")
		return p.finish(ctx, log, Result{Outcome: OutcomeRejected, Err: err})
	}

	hash := EmailHash(msg.HTML)
	log = log.With().Str("email_hash", hash).Logger()
	ctx = logger.WithContext(ctx, log)
	log.Info().Str("subject", msg.Subject).Msg("Received email")

	// 2. Keep a copy of the payload for replay.
	p.archive(ctx, log, hash, raw)

	// 3. Only PayPal debit card receipts are handled.
	if !strings.Contains(msg.Subject, p.subjectMarker) {
		err := &UnexpectedContentError{Reason: "unexpected email subject", Subject: msg.Subject}
		log.Warn().Str("subject", msg.Subject).Msg("Unexpected email subject")
		p.alert(ctx, log, "Unexpected Email Received",
			fmt.Sprintf("Unexpected email subject: '%s'\n\nEmail hash: %s", msg.Subject, hash))
		return p.finish(ctx, log, Result{Outcome: OutcomeSkipped, EmailHash: hash, Err: err})
	}

	// 4. The receipt lives in the HTML body.
	if msg.HTML == "" {
		err := &UnexpectedContentError{Reason: "PayPal receipt email has no HTML body", Subject: msg.Subject}
		log.Error().Msg("PayPal receipt email has no HTML body")
		p.alert(ctx, log, "Missing HTML Body",
			fmt.Sprintf("PayPal receipt email has no HTML body\n\nSubject: %s\nEmail hash: %s", msg.Subject, hash))
		return p.finish(ctx, log, Result{Outcome: OutcomeRejectedSoft, EmailHash: hash, Err: err})
	}

	// 5. Extract the transaction. A failure here is a template change and will
	// fail identically on every redelivery.
	tx, err := receipt.ParseReceipt(msg.HTML)
	if err != nil {
		notes := receipt.ExtractNotes(msg.Plain)
		logExtractionFailure(log, err)
		p.alert(ctx, log, "Template Change Detected", templateChangeBody(err, hash, notes))
		return p.finish(ctx, log, Result{Outcome: OutcomeRejectedSoft, EmailHash: hash, Err: err})
	}

	// 6. Attach the user's note from above the forwarded message.
	tx = tx.WithNotes(receipt.ExtractNotes(msg.Plain))
	log = logger.WithFields(log, map[string]interface{}{"transaction_id": tx.ID})
	ctx = logger.WithContext(ctx, log)

	event := log.Info().
		Str("date", tx.Date).
		Str("merchant", tx.Merchant).
		Str("amount", tx.Amount.StringFixed(2))
	if tx.Notes != "" {
		event = event.Str("notes", tx.Notes)
	}
	event.Msg("Parsed transaction")

	result := Result{EmailHash: hash, Transaction: &tx}

	// 7. Skip transactions the ledger already has.
	exists, err := p.ledger.Exists(ctx, tx.ID)
	if err != nil {
		return p.persistenceFailure(ctx, log, result, "lookup", err)
	}
	if exists {
		log.Info().Msg("Duplicate skipped")
		result.Outcome = OutcomeDuplicateSkipped
		return p.finish(ctx, log, result)
	}

	// 8. Append the row.
	if err := p.ledger.Append(ctx, tx); err != nil {
		return p.persistenceFailure(ctx, log, result, "append", err)
	}
	log.Info().Msg("Written to ledger")

	// 9. Done.
	result.Outcome = OutcomeRecorded
	return p.finish(ctx, log, result)
}

// persistenceFailure alerts on a ledger error and asks the sender to retry.
// When the alert fails as well the transaction is in neither the ledger nor an
// operator's inbox, which is escalated separately.
func (p *Processor) persistenceFailure(ctx context.Context, log zerolog.Logger, result Result, op string, cause error) Result {
	tx := result.Transaction
	perr := &PersistenceError{TransactionID: tx.ID, Op: op, Cause: cause}
	log.Error().Err(cause).Str("op", op).Msg("Ledger write failed")

	body := fmt.Sprintf(
		"Ledger %s failed: %v\n\n"+
			"Transaction ID: %s\n"+
			"Date: %s\n"+
			"Merchant: %s\n"+
			"Amount: £%s\n"+
			"Notes: %s\n\n"+
			"Email hash: %s",
		op, cause, tx.ID, tx.Date, tx.Merchant, tx.Amount.StringFixed(2), tx.Notes, result.EmailHash)

	if !p.alert(ctx, log, "Ledger Write Failed", body) {
		perr.AlertFailed = true
		log.WithLevel(zerolog.FatalLevel).
			Str("alert", DualFailureMarker).
			Str("date", tx.Date).
			Str("merchant", tx.Merchant).
			Str("amount", tx.Amount.StringFixed(2)).
			Msgf("DUAL FAILURE: ledger %s failed AND alert email failed. Transaction %s needs manual attention", op, tx.ID)
		if p.recorder != nil {
			p.recorder.DualFailure(ctx)
		}
	}

	result.Outcome = OutcomeFailed
	result.Err = perr
	return p.finish(ctx, log, result)
}

// alert sends an operator alert and reports whether it was accepted.
func (p *Processor) alert(ctx context.Context, log zerolog.Logger, subject, body string) bool {
	if err := p.alerter.Send(ctx, subject, body); err != nil {
		log.Error().Err(err).Str("alert_subject", subject).Msg("Failed to send alert email")
		return false
	}
	return true
}

func (p *Processor) archive(ctx context.Context, log zerolog.Logger, hash string, raw []byte) {
	if p.archiver == nil {
		return
	}
	uri, err := p.archiver.Archive(ctx, hash, raw)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to archive payload")
		return
	}
	log.Debug().Str("archive_uri", uri).Msg("Payload archived")
}

func (p *Processor) finish(ctx context.Context, log zerolog.Logger, result Result) Result {
	if p.recorder != nil {
		p.recorder.Outcome(ctx, string(result.Outcome))
	}
	log.Info().
		Str("outcome", string(result.Outcome)).
		Str("class", string(result.Class())).
		Msg("Email processed")
	return result
}

func logExtractionFailure(log zerolog.Logger, err error) {
	event := log.Error().Err(err)
	var extractErr *receipt.ExtractionError
	if errors.As(err, &extractErr) {
		event = event.Str("kind", string(extractErr.Kind))
		switch extractErr.Kind {
		case receipt.MissingFields:
			event = event.Strs("missing", extractErr.Missing).Strs("found", extractErr.Found)
		case receipt.UnparseableAmount:
			event = event.Str("raw_amount", extractErr.RawAmount)
		}
	}
	event.Msg("Parse failed")
}

func templateChangeBody(err error, hash, notes string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v\n\nEmail hash: %s\n\n", err, hash)
	if notes != "" {
		fmt.Fprintf(&b, "Notes from forwarded email: %s\n\n", notes)
	}
	b.WriteString("This likely means PayPal has changed their email template. The parser code needs updating.")
	return b.String()
}
