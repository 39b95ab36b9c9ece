package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/paypal-ledger/internal/receipt"
	"google.golang.org/api/iterator"
)

// TransactionRow is one ledger row in the BigQuery table.
type TransactionRow struct {
	TransactionID   string              `bigquery:"transaction_id"`   // REQUIRED
	TransactionDate string              `bigquery:"transaction_date"` // REQUIRED, as printed on the receipt
	Merchant        string              `bigquery:"merchant"`         // REQUIRED
	Amount          *big.Rat            `bigquery:"amount"`           // REQUIRED NUMERIC
	Currency        string              `bigquery:"currency"`         // REQUIRED
	Notes           bigquery.NullString `bigquery:"notes"`            // NULLABLE
	CreatedTS       time.Time           `bigquery:"created_ts"`       // REQUIRED
}

// Currency is the only currency PayPal debit card receipts are parsed in.
const Currency = "GBP"

// Ledger stores transactions in a BigQuery table. It holds a shared client;
// call Close when done.
type Ledger struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	tableID   string
	now       func() time.Time
}

// NewLedger creates a Ledger for projectID.datasetID.tableID.
func NewLedger(ctx context.Context, projectID, datasetID, tableID string) (*Ledger, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewLedger: creating client: %w", err)
	}
	return &Ledger{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		tableID:   tableID,
		now:       time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (l *Ledger) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

// Exists reports whether the table already holds transactionID.
func (l *Ledger) Exists(ctx context.Context, transactionID string) (bool, error) {
	q := l.client.Query(existsQuery(l.projectID, l.datasetID, l.tableID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("Exists: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Exists: iter next: %w", err)
	}
	return row.N > 0, nil
}

// Append streams one row into the table. The transaction ID doubles as the
// streaming insert ID so a retried insert within the dedup window is dropped
// by BigQuery.
func (l *Ledger) Append(ctx context.Context, tx receipt.Transaction) error {
	row := NewTransactionRow(tx, l.now().UTC())
	saver := &bigquery.StructSaver{Struct: row, InsertID: tx.ID}

	inserter := l.client.DatasetInProject(l.projectID, l.datasetID).Table(l.tableID).Inserter()
	if err := inserter.Put(ctx, saver); err != nil {
		return fmt.Errorf("Append: inserting row %s: %w", tx.ID, err)
	}
	return nil
}

// EnsureTable creates the ledger table if it does not exist. The dataset
// must already exist.
func (l *Ledger) EnsureTable(ctx context.Context) error {
	job, err := l.client.Query(createTableDDL(l.projectID, l.datasetID, l.tableID)).Run(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("EnsureTable: job error: %w", err)
	}
	return nil
}

// NewTransactionRow maps a transaction to its table row.
func NewTransactionRow(tx receipt.Transaction, created time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID:   tx.ID,
		TransactionDate: tx.Date,
		Merchant:        tx.Merchant,
		Amount:          tx.Amount.Rat(),
		Currency:        Currency,
		Notes:           bigquery.NullString{StringVal: tx.Notes, Valid: tx.Notes != ""},
		CreatedTS:       created,
	}
}

func existsQuery(projectID, datasetID, tableID string) string {
	return fmt.Sprintf(
		"SELECT COUNT(1) AS n FROM `%s.%s.%s` WHERE transaction_id = @transaction_id",
		projectID, datasetID, tableID)
}

func createTableDDL(projectID, datasetID, tableID string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.%s`"+` (
			transaction_id   STRING NOT NULL,
			transaction_date STRING NOT NULL,
			merchant         STRING NOT NULL,
			amount           NUMERIC NOT NULL,
			currency         STRING NOT NULL,
			notes            STRING,
			created_ts       TIMESTAMP NOT NULL
		)
	`, projectID, datasetID, tableID)
}
