package sms

import (
	"context"
	"time"
)

// SendRequest is a single text message.
type SendRequest struct {
	To   string // E.164 recipient number
	From string // Sender number; empty uses the sender default
	Body string
}

// SendResult contains the provider's acknowledgement.
type SendResult struct {
	MessageID string // Provider SID, empty when the response carried none
	SentAt    time.Time
}

// Sender is the interface for sending text messages via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
