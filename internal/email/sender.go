// Package email delivers citizen notifications over SMTP.
package email

import (
	"context"

	"beneficios_backend/platform/config"
)

// Sender delivers the notification e-mails of the request workflow.
type Sender interface {
	SendStatusChangedEmail(ctx context.Context, toEmail string, data StatusChangedData) error
	SendPendencyOpenedEmail(ctx context.Context, toEmail string, data PendencyOpenedData) error
	SendRenewalCreatedEmail(ctx context.Context, toEmail string, data RenewalCreatedData) error
}

// NoopSender drops every message. It is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendStatusChangedEmail(context.Context, string, StatusChangedData) error {
	return nil
}

func (NoopSender) SendPendencyOpenedEmail(context.Context, string, PendencyOpenedData) error {
	return nil
}

func (NoopSender) SendRenewalCreatedEmail(context.Context, string, RenewalCreatedData) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when SMTP is disabled.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetSMTPFromAddress(), cfg.GetSMTPFromName())
}
