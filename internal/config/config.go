package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	BackendSheets   = "sheets"
	BackendBigQuery = "bigquery"
	BackendNotion   = "notion"
)

// Defaults applied when the variable is unset.
const (
	DefaultPort          = "8080"
	DefaultBigQuerySet   = "finance"
	DefaultBigQueryTable = "paypal_transactions"
)

// Config is the process configuration. It is loaded once at start-up and
// passed by value to each collaborator constructor; nothing mutates it later.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Basic auth expected from CloudMailin. An empty username disables auth.
	WebhookUsername string
	WebhookPassword string

	SubjectMarker string

	LedgerBackend string
	Sheets        SheetsConfig
	BigQuery      BigQueryConfig
	Notion        NotionConfig

	Alerts AlertsConfig

	// ArchiveBucket enables raw payload archiving to GCS when set.
	ArchiveBucket string

	// MetricsProject enables export to Cloud Monitoring when set.
	MetricsProject string
}

// SheetsConfig locates the Google Sheets ledger.
type SheetsConfig struct {
	ServiceAccountJSON string
	SpreadsheetID      string
	Tab                string
}

// BigQueryConfig locates the BigQuery ledger table.
type BigQueryConfig struct {
	ProjectID string
	Dataset   string
	Table     string
}

// NotionConfig locates the Notion ledger database.
type NotionConfig struct {
	Token      string
	DatabaseID string
}

// AlertsConfig configures the Resend alert channel.
type AlertsConfig struct {
	ResendAPIKey string
	From         string
	To           string
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup (os.LookupEnv in production) and
// validates it.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		Port:      get("PORT", DefaultPort),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "json"),

		WebhookUsername: get("CLOUDMAILIN_USERNAME", ""),
		WebhookPassword: get("CLOUDMAILIN_PASSWORD", ""),

		SubjectMarker: get("SUBJECT_MARKER", ""),

		LedgerBackend: strings.ToLower(get("LEDGER_BACKEND", BackendSheets)),
		Sheets: SheetsConfig{
			ServiceAccountJSON: get("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
			SpreadsheetID:      get("GOOGLE_SHEETS_ID", ""),
			Tab:                get("GOOGLE_SHEETS_TAB", ""),
		},
		BigQuery: BigQueryConfig{
			ProjectID: get("BIGQUERY_PROJECT", ""),
			Dataset:   get("BIGQUERY_DATASET", DefaultBigQuerySet),
			Table:     get("BIGQUERY_TABLE", DefaultBigQueryTable),
		},
		Notion: NotionConfig{
			Token:      get("NOTION_TOKEN", ""),
			DatabaseID: get("NOTION_DATABASE_ID", ""),
		},
		Alerts: AlertsConfig{
			ResendAPIKey: get("RESEND_API_KEY", ""),
			From:         get("RESEND_FROM_EMAIL", ""),
			To:           get("ALERT_EMAIL", ""),
		},
		ArchiveBucket:  get("ARCHIVE_BUCKET", ""),
		MetricsProject: get("METRICS_PROJECT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the selected ledger backend needs. Alert
// settings are not required to start: a misconfigured alert channel fails
// each send, which the pipeline escalates.
func (c Config) Validate() error {
	var errs []error
	require := func(value, name string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required for ledger backend %q", name, c.LedgerBackend))
		}
	}

	switch c.LedgerBackend {
	case BackendSheets:
		require(c.Sheets.ServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
		require(c.Sheets.SpreadsheetID, "GOOGLE_SHEETS_ID")
	case BackendBigQuery:
		require(c.BigQuery.ProjectID, "BIGQUERY_PROJECT")
	case BackendNotion:
		require(c.Notion.Token, "NOTION_TOKEN")
		require(c.Notion.DatabaseID, "NOTION_DATABASE_ID")
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q (want sheets, bigquery or notion)", c.LedgerBackend))
	}

	if c.WebhookUsername != "" && c.WebhookPassword == "" {
		errs = append(errs, errors.New("CLOUDMAILIN_PASSWORD is required when CLOUDMAILIN_USERNAME is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// AuthEnabled reports whether the webhook requires Basic auth.
func (c Config) AuthEnabled() bool {
	return c.WebhookUsername != ""
}

// AlertsConfigured reports whether every alert setting is present.
func (c Config) AlertsConfigured() bool {
	return c.Alerts.ResendAPIKey != "" && c.Alerts.From != "" && c.Alerts.To != ""
}
