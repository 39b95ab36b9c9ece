package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/dvloznov/paypal-ledger/internal/receipt"
)

// mockLedger is an in-memory Ledger with injectable failures.
type mockLedger struct {
	mu        sync.Mutex
	rows      []receipt.Transaction
	existsErr error
	appendErr error
	appends   int
}

func (m *mockLedger) Exists(ctx context.Context, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, r := range m.rows {
		if r.ID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLedger) Append(ctx context.Context, tx receipt.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rows = append(m.rows, tx)
	return nil
}

type sentAlert struct {
	Subject string
	Body    string
}

// mockAlerter records every alert and optionally fails them all.
type mockAlerter struct {
	mu   sync.Mutex
	sent []sentAlert
	err  error
}

func (m *mockAlerter) Send(ctx context.Context, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentAlert{Subject: subject, Body: body})
	return m.err
}

type mockArchiver struct {
	hashes []string
	err    error
}

func (m *mockArchiver) Archive(ctx context.Context, emailHash string, raw []byte) (string, error) {
	m.hashes = append(m.hashes, emailHash)
	if m.err != nil {
		return "", m.err
	}
	return "gs://archive/" + emailHash + ".json", nil
}

type mockRecorder struct {
	outcomes     []string
	dualFailures int
}

func (m *mockRecorder) Outcome(ctx context.Context, outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockRecorder) DualFailure(ctx context.Context) {
	m.dualFailures++
}

var errSheetsDown = errors.New("sheets: 503 service unavailable")
