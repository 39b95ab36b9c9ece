package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/paypal-ledger/internal/receipt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Ledger columns: Date, Amount, Merchant, Transaction ID, Notes.
const (
	idColumnRange = "D:D"
	rowRange      = "A:E"
)

// ValuesService reads and appends sheet values.
// This interface enables mocking of the Sheets API in tests.
type ValuesService interface {
	// Column returns the values of a single-column range, one row per element.
	Column(ctx context.Context, spreadsheetID, rng string) ([]string, error)

	// AppendRow appends one row after the last row of rng.
	AppendRow(ctx context.Context, spreadsheetID, rng string, row []interface{}) error
}

// Ledger stores transactions as rows of a Google Sheets tab.
type Ledger struct {
	values        ValuesService
	spreadsheetID string
	tab           string
}

// NewLedger creates a Ledger writing to tab of spreadsheetID through values.
// An empty tab targets the spreadsheet's first sheet, whatever its title.
func NewLedger(values ValuesService, spreadsheetID, tab string) *Ledger {
	return &Ledger{values: values, spreadsheetID: spreadsheetID, tab: tab}
}

// Exists reports whether column D already holds transactionID. Only that
// column is fetched so the lookup stays fast as the sheet grows.
func (l *Ledger) Exists(ctx context.Context, transactionID string) (bool, error) {
	ids, err := l.values.Column(ctx, l.spreadsheetID, l.rangeOf(idColumnRange))
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	for _, id := range ids {
		if id == transactionID {
			return true, nil
		}
	}
	return false, nil
}

// Append writes the transaction as a new row.
func (l *Ledger) Append(ctx context.Context, tx receipt.Transaction) error {
	if err := l.values.AppendRow(ctx, l.spreadsheetID, l.rangeOf(rowRange), Row(tx)); err != nil {
		return fmt.Errorf("Append: transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Row is the sheet row for a transaction. The amount is written as a plain
// number with two decimals so the sheet parses it as a number.
func Row(tx receipt.Transaction) []interface{} {
	return []interface{}{tx.Date, tx.Amount.StringFixed(2), tx.Merchant, tx.ID, tx.Notes}
}

func (l *Ledger) rangeOf(cells string) string {
	if l.tab == "" {
		return cells
	}
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(l.tab, "'", "''"), cells)
}

// Client is the ValuesService backed by the Sheets v4 API.
type Client struct {
	service *sheets.Service
}

// NewClient creates a Client authenticated with a service account key.
func NewClient(ctx context.Context, serviceAccountJSON string) (*Client, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsJSON([]byte(serviceAccountJSON)),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating sheets service: %w", err)
	}
	return &Client{service: service}, nil
}

// Column returns the first cell of every row in rng.
func (c *Client) Column(ctx context.Context, spreadsheetID, rng string) ([]string, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("Column: reading %s: %w", rng, err)
	}

	column := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			column = append(column, "")
			continue
		}
		column = append(column, fmt.Sprint(row[0]))
	}
	return column, nil
}

// AppendRow appends row with USER_ENTERED input so values are parsed as if typed.
func (c *Client) AppendRow(ctx context.Context, spreadsheetID, rng string, row []interface{}) error {
	body := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := c.service.Spreadsheets.Values.Append(spreadsheetID, rng, body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("AppendRow: appending to %s: %w", rng, err)
	}
	return nil
}
