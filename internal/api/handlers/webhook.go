package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dvloznov/paypal-ledger/internal/api/middleware"
	"github.com/dvloznov/paypal-ledger/internal/logger"
	"github.com/dvloznov/paypal-ledger/internal/pipeline"
)

// Processor runs one webhook payload through the pipeline.
type Processor interface {
	Process(ctx context.Context, raw []byte) pipeline.Result
}

// WebhookHandler handles the inbound-email webhook.
type WebhookHandler struct {
	processor Processor
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(processor Processor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// IncomingEmail handles POST /webhook/incoming-email. The status code tells
// the sender whether to redeliver: only 5xx is retried.
func (h *WebhookHandler) IncomingEmail(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Warn().Int64("limit", maxErr.Limit).Msg("Webhook payload too large")
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		log.Error().Err(err).Msg("Failed to read webhook body")
		middleware.WriteError(w, http.StatusBadRequest, "No payload")
		return
	}

	result := h.processor.Process(r.Context(), raw)
	status, body := Response(result)
	middleware.WriteJSON(w, status, body)
}

// Response maps a pipeline result to the HTTP status and JSON body sent back.
func Response(result pipeline.Result) (int, map[string]interface{}) {
	switch result.Outcome {
	case pipeline.OutcomeRecorded:
		tx := result.Transaction
		return http.StatusOK, map[string]interface{}{
			"status":         "success",
			"transaction_id": tx.ID,
			"email_hash":     result.EmailHash,
			"notes":          tx.Notes,
		}

	case pipeline.OutcomeDuplicateSkipped:
		return http.StatusOK, map[string]interface{}{
			"status":         "duplicate",
			"transaction_id": result.Transaction.ID,
			"email_hash":     result.EmailHash,
		}

	case pipeline.OutcomeSkipped:
		return http.StatusOK, map[string]interface{}{
			"status": "skipped",
			"reason": "unexpected subject",
		}

	case pipeline.OutcomeRejectedSoft:
		var contentErr *pipeline.UnexpectedContentError
		if errors.As(result.Err, &contentErr) {
			return http.StatusOK, map[string]interface{}{"error": "No HTML body"}
		}
		return http.StatusOK, map[string]interface{}{"error": errorText(result.Err, "Parse failed")}

	case pipeline.OutcomeFailed:
		return http.StatusInternalServerError, map[string]interface{}{"error": "Ledger write failed"}

	default:
		return http.StatusBadRequest, map[string]interface{}{"error": "No payload"}
	}
}

func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}

// HealthHandler handles GET /health.
type HealthHandler struct {
	now func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

// Health reports liveness. It does not touch the ledger or alert channel.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
