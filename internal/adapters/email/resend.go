package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// providerTimeout bounds a single provider call so a stalled API cannot hold the webhook open.
const providerTimeout = 15 * time.Second

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	now    func() time.Time
}

// NewResendSender creates a new ResendSender with the given API key and default from address.
// baseURL overrides the API endpoint; empty keeps the provider default.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender, or an error for an unparseable baseURL
func NewResendSender(apiKey, from, baseURL string) (*ResendSender, error) {
	client := resend.NewCustomClient(&http.Client{Timeout: providerTimeout}, apiKey)
	if baseURL != "" {
		// Request paths are relative, so the base must end in a slash.
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendSender{client: client, from: from, now: time.Now}, nil
}

// Send sends a single email via Resend.
// PRE: req has at least one recipient and a subject
// POST: Email is accepted for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	from := req.From
	if from == "" {
		from = s.from
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	}
	if req.ReplyTo != "" {
		params.ReplyTo = req.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend error: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: sent.Id,
		SentAt:    s.now(),
	}, nil
}
