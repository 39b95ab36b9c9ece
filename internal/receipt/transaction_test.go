package receipt

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiptHTML(rows ...string) string {
	return "<html><body>" + strings.Join(rows, "\n") + "</body></html>"
}

func completeRows(amount string) []string {
	return []string{
		row("Transaction ID", `<a href="https://paypal.com/x">8U996209RL780471G</a>`),
		row("Transaction date", "12 February 2026"),
		row("Merchant", "PRET A MANGER"),
		row("Total amount", amount),
	}
}

func TestParseReceipt_SampleReceipt(t *testing.T) {
	html, err := os.ReadFile("testdata/paypal-receipt.html")
	require.NoError(t, err)

	tx, err := ParseReceipt(string(html))
	require.NoError(t, err)

	assert.Equal(t, "8U996209RL780471G", tx.ID)
	assert.Equal(t, "12 February 2026", tx.Date)
	assert.Equal(t, "PRET A MANGER", tx.Merchant)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("4.85")), "amount = %s", tx.Amount)
	assert.Empty(t, tx.Notes)
}

func TestParseReceipt_Amounts(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"£4.85 GBP", "4.85"},
		{"£1,234.56 GBP", "1234.56"},
		{"£1,234,567.89 GBP", "1234567.89"},
		{"£12 GBP", "12"},
		{"£1234.56 GBP", "1234.56"},
		{"Total: £0.01 GBP", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tx, err := ParseReceipt(receiptHTML(completeRows(tt.raw)...))
			require.NoError(t, err)
			assert.True(t, tx.Amount.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", tx.Amount, tt.want)
		})
	}
}

func TestParseReceipt_UnparseableAmount(t *testing.T) {
	for _, raw := range []string{
		"4.85 GBP", "$4.85 USD", "£ 4.85 GBP", "£.85 GBP", "£0.00 GBP", "GBP",
		"£1.2.3 GBP", "£4.85.99 GBP", "£12,34,5.00 GBP", "£1,,2 GBP", "£4.85. GBP", "£1,234.5,6 GBP",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseReceipt(receiptHTML(completeRows(raw)...))

			var extractErr *ExtractionError
			require.True(t, errors.As(err, &extractErr), "got %v", err)
			assert.Equal(t, UnparseableAmount, extractErr.Kind)
			assert.Equal(t, raw, extractErr.RawAmount)
			assert.Contains(t, extractErr.Error(), raw)
		})
	}
}

func TestParseReceipt_MissingFields(t *testing.T) {
	all := completeRows("£4.85 GBP")

	tests := []struct {
		name        string
		rows        []string
		wantMissing []string
		wantFound   []string
	}{
		{
			name:        "no rows at all",
			rows:        nil,
			wantMissing: RequiredLabels,
			wantFound:   []string{},
		},
		{
			name:        "missing merchant",
			rows:        []string{all[0], all[1], all[3]},
			wantMissing: []string{"Merchant"},
			wantFound:   []string{"Transaction ID", "Transaction date", "Total amount"},
		},
		{
			name:        "missing id and amount",
			rows:        []string{all[1], all[2], row("Card", "Mastercard")},
			wantMissing: []string{"Transaction ID", "Total amount"},
			wantFound:   []string{"Transaction date", "Merchant", "Card"},
		},
		{
			name:        "renamed label",
			rows:        []string{all[0], all[1], all[2], row("Amount paid", "£4.85 GBP")},
			wantMissing: []string{"Total amount"},
			wantFound:   []string{"Transaction ID", "Transaction date", "Merchant", "Amount paid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReceipt(receiptHTML(tt.rows...))

			var extractErr *ExtractionError
			require.True(t, errors.As(err, &extractErr), "got %v", err)
			assert.Equal(t, MissingFields, extractErr.Kind)
			assert.Equal(t, tt.wantMissing, extractErr.Missing)
			assert.Equal(t, tt.wantFound, extractErr.Found)
			for _, label := range tt.wantMissing {
				assert.Contains(t, extractErr.Error(), label)
			}
		})
	}
}

func TestParseReceipt_NotAReceipt(t *testing.T) {
	_, err := ParseReceipt("<html><body>This is not a PayPal email</body></html>")

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, RequiredLabels, extractErr.Missing)
}

func TestTransaction_WithNotes(t *testing.T) {
	tx := Transaction{ID: "X", Amount: decimal.RequireFromString("1.00")}

	annotated := tx.WithNotes("Groceries")

	assert.Equal(t, "Groceries", annotated.Notes)
	assert.Empty(t, tx.Notes)
}
