package receipt

import (
	"fmt"
	"strings"
)

// ExtractionKind classifies why a receipt could not be turned into a Transaction.
type ExtractionKind string

const (
	// MissingFields means one or more required labels were not found.
	MissingFields ExtractionKind = "missing_fields"
	// UnparseableAmount means the total amount had no £-prefixed number.
	UnparseableAmount ExtractionKind = "unparseable_amount"
	// UnreadableDocument means the HTML could not be read at all.
	UnreadableDocument ExtractionKind = "unreadable_document"
)

// ExtractionError is returned when the receipt does not match the expected
// template. It carries enough detail to fix the parser without the original
// email: the missing and found labels, or the raw amount text.
type ExtractionError struct {
	Kind ExtractionKind

	Missing []string // required labels that were absent
	Found   []string // every label that was present, in document order

	RawAmount string // the Total amount text that failed to parse

	Cause error
}

func (e *ExtractionError) Error() string {
	switch e.Kind {
	case MissingFields:
		return fmt.Sprintf(
			"missing expected fields: [%s]. found fields: [%s]. PayPal may have changed their email template",
			quoteList(e.Missing), quoteList(e.Found))
	case UnparseableAmount:
		return fmt.Sprintf("could not parse amount from %q, expected format like '£4.85 GBP'", e.RawAmount)
	case UnreadableDocument:
		return fmt.Sprintf("could not read email HTML: %v", e.Cause)
	default:
		return fmt.Sprintf("receipt extraction failed (%s)", e.Kind)
	}
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
