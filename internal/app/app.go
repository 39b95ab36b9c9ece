package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/paypal-ledger/internal/alerts"
	"github.com/dvloznov/paypal-ledger/internal/archive"
	"github.com/dvloznov/paypal-ledger/internal/config"
	infraBQ "github.com/dvloznov/paypal-ledger/internal/infra/bigquery"
	infraNotion "github.com/dvloznov/paypal-ledger/internal/infra/notion"
	infraSheets "github.com/dvloznov/paypal-ledger/internal/infra/sheets"
	"github.com/dvloznov/paypal-ledger/internal/metrics"
	"github.com/dvloznov/paypal-ledger/internal/pipeline"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Processor *pipeline.Processor

	closers []func() error
}

// New connects the configured ledger, alert channel, archive and metrics and
// builds the Processor. Call Close when done.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	ledger, err := a.newLedger(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info().Str("backend", cfg.LedgerBackend).Msg("Ledger configured")

	if !cfg.AlertsConfigured() {
		log.Warn().Msg("Alert email settings incomplete - every alert will fail")
	}
	alerter := alerts.NewAlerter(alerts.Config{
		APIKey: cfg.Alerts.ResendAPIKey,
		From:   cfg.Alerts.From,
		To:     cfg.Alerts.To,
	})

	deps := pipeline.Deps{Ledger: ledger, Alerter: alerter}

	if cfg.ArchiveBucket != "" {
		store, err := archive.NewStore(ctx, cfg.ArchiveBucket)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: archive: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		deps.Archiver = store
		log.Info().Str("bucket", cfg.ArchiveBucket).Msg("Payload archive enabled")
	}

	var provider *sdkmetric.MeterProvider
	if cfg.MetricsProject != "" {
		provider, err = metrics.NewCloudMonitoringProvider(cfg.MetricsProject)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: metrics: %w", err)
		}
		a.closers = append(a.closers, func() error {
			return provider.Shutdown(context.Background())
		})
		log.Info().Str("project", cfg.MetricsProject).Msg("Metrics export enabled")
	}
	recorder, err := metrics.NewRecorder(meterProvider(provider))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	deps.Recorder = recorder

	processor, err := pipeline.NewProcessor(deps, cfg.SubjectMarker)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Processor = processor
	return a, nil
}

func (a *App) newLedger(ctx context.Context, cfg config.Config) (pipeline.Ledger, error) {
	switch cfg.LedgerBackend {
	case config.BackendSheets:
		client, err := infraSheets.NewClient(ctx, cfg.Sheets.ServiceAccountJSON)
		if err != nil {
			return nil, fmt.Errorf("newLedger: sheets: %w", err)
		}
		return infraSheets.NewLedger(client, cfg.Sheets.SpreadsheetID, cfg.Sheets.Tab), nil

	case config.BackendBigQuery:
		ledger, err := infraBQ.NewLedger(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
		if err != nil {
			return nil, fmt.Errorf("newLedger: bigquery: %w", err)
		}
		a.closers = append(a.closers, ledger.Close)
		return ledger, nil

	case config.BackendNotion:
		client := infraNotion.NewClient(cfg.Notion.Token)
		return infraNotion.NewLedger(client, cfg.Notion.DatabaseID), nil
	}
	return nil, fmt.Errorf("newLedger: unknown backend %q", cfg.LedgerBackend)
}

// Close releases every client New opened, most recent first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// meterProvider returns p, or nil (the global provider) when p is unset.
// A typed nil must not reach metrics.NewRecorder as a non-nil interface.
func meterProvider(p *sdkmetric.MeterProvider) metric.MeterProvider {
	if p == nil {
		return nil
	}
	return p
}
