package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"

	"batiflow/internal/config"
)

// resendSender delivers mail through the Resend API.
type resendSender struct {
	client *resend.Client
	from   string
}

// NewResend builds a Sender from config.
func NewResend(cfg config.ResendConfig) (Sender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend api key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("resend from address is required")
	}
	return &resendSender{client: resend.NewClient(cfg.APIKey), from: cfg.From}, nil
}

func (s *resendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
