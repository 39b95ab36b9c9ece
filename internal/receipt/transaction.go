package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Labels of the receipt rows a Transaction is built from.
const (
	LabelTransactionID = "Transaction ID"
	LabelDate          = "Transaction date"
	LabelMerchant      = "Merchant"
	LabelTotalAmount   = "Total amount"
)

// RequiredLabels lists the rows every receipt must carry, in reporting order.
var RequiredLabels = []string{LabelTransactionID, LabelDate, LabelMerchant, LabelTotalAmount}

// amountPattern captures the whole numeric run after the first £.
var amountPattern = regexp.MustCompile(`£([\d.,]+)`)

// numberPattern is the accepted shape of that run: plain digits, or digits
// grouped in thousands by commas, with an optional fraction.
var numberPattern = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})*|\d+)(?:\.\d+)?$`)

// Transaction is one PayPal debit card purchase.
// Date is kept exactly as the receipt shows it (e.g. "12 February 2026").
type Transaction struct {
	ID       string
	Date     string
	Merchant string
	Amount   decimal.Decimal // GBP
	Notes    string
}

// WithNotes returns a copy of t annotated with notes.
func (t Transaction) WithNotes(notes string) Transaction {
	t.Notes = notes
	return t
}

// BuildTransaction validates fields and builds a Transaction from them.
// Any missing label or unparseable amount is an *ExtractionError; no partial
// record is ever returned.
func BuildTransaction(fields *FieldMap) (Transaction, error) {
	var missing []string
	for _, label := range RequiredLabels {
		if _, ok := fields.Get(label); !ok {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return Transaction{}, &ExtractionError{
			Kind:    MissingFields,
			Missing: missing,
			Found:   fields.Labels(),
		}
	}

	rawAmount, _ := fields.Get(LabelTotalAmount)
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return Transaction{}, err
	}

	id, _ := fields.Get(LabelTransactionID)
	date, _ := fields.Get(LabelDate)
	merchant, _ := fields.Get(LabelMerchant)

	return Transaction{
		ID:       id,
		Date:     date,
		Merchant: merchant,
		Amount:   amount,
	}, nil
}

// ParseReceipt extracts and validates a Transaction from receipt HTML.
func ParseReceipt(html string) (Transaction, error) {
	fields, err := ExtractFields(html)
	if err != nil {
		return Transaction{}, err
	}
	return BuildTransaction(fields)
}

// parseAmount converts "£1,234.56 GBP" into 1234.56.
func parseAmount(raw string) (decimal.Decimal, error) {
	m := amountPattern.FindStringSubmatch(raw)
	if m == nil || !numberPattern.MatchString(m[1]) {
		return decimal.Decimal{}, &ExtractionError{Kind: UnparseableAmount, RawAmount: raw}
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Decimal{}, &ExtractionError{Kind: UnparseableAmount, RawAmount: raw, Cause: err}
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, &ExtractionError{Kind: UnparseableAmount, RawAmount: raw}
	}

	return amount, nil
}
