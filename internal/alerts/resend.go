package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/paypal-ledger/internal/logger"
	"github.com/resend/resend-go/v2"
)

// SubjectPrefix is prepended to every alert subject so alerts are easy to filter.
const SubjectPrefix = "[PayPal Parser] "

// Sender sends one email. *resend.Client's Emails service satisfies it.
type Sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config holds the Resend credentials and addresses.
type Config struct {
	APIKey string
	From   string
	To     string
}

// Alerter delivers operator alerts by email through Resend.
type Alerter struct {
	sender Sender
	cfg    Config
	now    func() time.Time
}

// NewAlerter creates an Alerter with a Resend client for cfg.APIKey.
// Missing settings are not an error here; every Send fails instead.
func NewAlerter(cfg Config) *Alerter {
	return NewAlerterWithSender(resend.NewClient(cfg.APIKey).Emails, cfg)
}

// NewAlerterWithSender creates an Alerter that sends through sender.
func NewAlerterWithSender(sender Sender, cfg Config) *Alerter {
	return &Alerter{sender: sender, cfg: cfg, now: time.Now}
}

// Send emails the alert to the operator.
func (a *Alerter) Send(ctx context.Context, subject, body string) error {
	if err := a.cfg.validate(); err != nil {
		return fmt.Errorf("Send: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    a.cfg.From,
		To:      []string{a.cfg.To},
		Subject: SubjectPrefix + subject,
		Text:    fmt.Sprintf("Time: %s\n\n%s", a.now().UTC().Format(time.RFC3339), body),
	}

	sent, err := a.sender.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("Send: resend: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("email_id", sent.Id).Str("alert_subject", subject).Msg("Alert email sent")
	return nil
}

func (c Config) validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("RESEND_API_KEY not set, cannot send alert")
	case c.From == "":
		return errors.New("RESEND_FROM_EMAIL not set, cannot send alert")
	case c.To == "":
		return errors.New("ALERT_EMAIL not set, cannot send alert")
	}
	return nil
}
