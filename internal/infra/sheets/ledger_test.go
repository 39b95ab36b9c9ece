package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/paypal-ledger/internal/receipt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockValues struct {
	column    []string
	columnErr error
	appendErr error

	readRanges   []string
	appendRanges []string
	rows         [][]interface{}
}

func (m *mockValues) Column(_ context.Context, _ string, rng string) ([]string, error) {
	m.readRanges = append(m.readRanges, rng)
	return m.column, m.columnErr
}

func (m *mockValues) AppendRow(_ context.Context, _ string, rng string, row []interface{}) error {
	m.appendRanges = append(m.appendRanges, rng)
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rows = append(m.rows, row)
	return nil
}

func sampleTransaction() receipt.Transaction {
	return receipt.Transaction{
		ID:       "9XK12345AB678901C",
		Date:     "3 September 2025",
		Merchant: "Pret A Manger",
		Amount:   decimal.RequireFromString("4.5"),
		Notes:    "coffee",
	}
}

func TestLedger_Exists(t *testing.T) {
	tests := []struct {
		name   string
		column []string
		want   bool
	}{
		{name: "empty sheet", want: false},
		{name: "header only", column: []string{"Transaction ID"}, want: false},
		{name: "present", column: []string{"Transaction ID", "AAA", "9XK12345AB678901C"}, want: true},
		{name: "prefix is not a match", column: []string{"9XK12345AB678901"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := &mockValues{column: tt.column}
			ledger := NewLedger(values, "sheet-1", "Sheet1")

			got, err := ledger.Exists(context.Background(), "9XK12345AB678901C")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"'Sheet1'!D:D"}, values.readRanges)
		})
	}
}

func TestLedger_ExistsError(t *testing.T) {
	values := &mockValues{columnErr: errors.New("quota exceeded")}

	_, err := NewLedger(values, "sheet-1", "Sheet1").Exists(context.Background(), "X")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestLedger_Append(t *testing.T) {
	values := &mockValues{}

	err := NewLedger(values, "sheet-1", "Ledger").Append(context.Background(), sampleTransaction())
	require.NoError(t, err)

	assert.Equal(t, []string{"'Ledger'!A:E"}, values.appendRanges)
	require.Len(t, values.rows, 1)
	assert.Equal(t,
		[]interface{}{"3 September 2025", "4.50", "Pret A Manger", "9XK12345AB678901C", "coffee"},
		values.rows[0])
}

func TestLedger_AppendError(t *testing.T) {
	values := &mockValues{appendErr: errors.New("503")}

	err := NewLedger(values, "sheet-1", "Sheet1").Append(context.Background(), sampleTransaction())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "9XK12345AB678901C")
}

func TestLedger_DefaultTabUsesFirstSheet(t *testing.T) {
	values := &mockValues{column: []string{"Transaction ID"}}
	ledger := NewLedger(values, "sheet-1", "")

	exists, err := ledger.Exists(context.Background(), "9XK12345AB678901C")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, ledger.Append(context.Background(), sampleTransaction()))

	assert.Equal(t, []string{"D:D"}, values.readRanges)
	assert.Equal(t, []string{"A:E"}, values.appendRanges)
}

func TestLedger_RangeQuoting(t *testing.T) {
	tests := []struct {
		tab  string
		want string
	}{
		{tab: "", want: "D:D"},
		{tab: "Sheet1", want: "'Sheet1'!D:D"},
		{tab: "Bob's card", want: "'Bob''s card'!D:D"},
	}

	for _, tt := range tests {
		ledger := NewLedger(&mockValues{}, "s", tt.tab)
		assert.Equal(t, tt.want, ledger.rangeOf(idColumnRange))
	}
}
