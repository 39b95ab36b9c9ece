package metrics

import (
	"context"
	"fmt"
	"time"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Instrument names.
const (
	MeterName           = "paypal-ledger/pipeline"
	OutcomesCounter     = "ingest_outcomes_total"
	DualFailuresCounter = "ingest_dual_failures_total"
)

// ExportInterval is how often the Cloud Monitoring exporter pushes.
const ExportInterval = time.Minute

// Recorder counts pipeline outcomes with OpenTelemetry counters.
type Recorder struct {
	outcomes     metric.Int64Counter
	dualFailures metric.Int64Counter
}

// NewRecorder creates the counters on provider, or on the global provider
// when provider is nil.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(MeterName)

	outcomes, err := meter.Int64Counter(
		OutcomesCounter,
		metric.WithDescription("Inbound emails processed, by outcome"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("NewRecorder: create %s counter: %w", OutcomesCounter, err)
	}

	dualFailures, err := meter.Int64Counter(
		DualFailuresCounter,
		metric.WithDescription("Ledger writes that failed while the operator alert also failed"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("NewRecorder: create %s counter: %w", DualFailuresCounter, err)
	}

	return &Recorder{outcomes: outcomes, dualFailures: dualFailures}, nil
}

// Outcome counts one processed email.
func (r *Recorder) Outcome(ctx context.Context, outcome string) {
	r.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// DualFailure counts one transaction that reached neither the ledger nor the operator.
func (r *Recorder) DualFailure(ctx context.Context) {
	r.dualFailures.Add(ctx, 1)
}

// NewCloudMonitoringProvider returns a meter provider that periodically
// exports to Google Cloud Monitoring in projectID. Callers must Shutdown it.
func NewCloudMonitoringProvider(projectID string) (*sdkmetric.MeterProvider, error) {
	exporter, err := mexporter.New(mexporter.WithProjectID(projectID))
	if err != nil {
		return nil, fmt.Errorf("NewCloudMonitoringProvider: create exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(ExportInterval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
}
