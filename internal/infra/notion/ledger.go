package notion

import (
	"context"
	"fmt"

	"github.com/dvloznov/paypal-ledger/internal/receipt"
	"github.com/jomei/notionapi"
)

// Database property names.
const (
	PropMerchant      = "Merchant"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropNotes         = "Notes"
)

// Ledger stores transactions as pages of a Notion database.
type Ledger struct {
	service    Service
	databaseID string
}

// NewLedger creates a Ledger writing to databaseID through service.
func NewLedger(service Service, databaseID string) *Ledger {
	return &Ledger{service: service, databaseID: databaseID}
}

// Exists reports whether a page with this transaction ID is in the database.
func (l *Ledger) Exists(ctx context.Context, transactionID string) (bool, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: PropTransactionID,
			RichText: &notionapi.TextFilterCondition{Equals: transactionID},
		},
		PageSize: 1,
	}

	resp, err := l.service.QueryDatabase(ctx, l.databaseID, req)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return len(resp.Results) > 0, nil
}

// Append creates one page for the transaction.
func (l *Ledger) Append(ctx context.Context, tx receipt.Transaction) error {
	if _, err := l.service.CreatePage(ctx, l.databaseID, TransactionProperties(tx)); err != nil {
		return fmt.Errorf("Append: transaction %s: %w", tx.ID, err)
	}
	return nil
}

// TransactionProperties converts a transaction to Notion page properties.
// The receipt date is stored as text since it is kept exactly as printed.
func TransactionProperties(tx receipt.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		PropMerchant: notionapi.TitleProperty{
			Title: []notionapi.RichText{richText(tx.Merchant)},
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(tx.ID)},
		},
		PropDate: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(tx.Date)},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		PropCurrency: notionapi.SelectProperty{
			Select: notionapi.Option{Name: "GBP"},
		},
	}

	// Notes (optional)
	if tx.Notes != "" {
		props[PropNotes] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(tx.Notes)},
		}
	}

	return props
}

func richText(content string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: content},
	}
}
