package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "forgefit/internal/adapters/email"
	"forgefit/internal/adapters/http/perf"
	smsAdapter "forgefit/internal/adapters/sms"
	"forgefit/internal/config"
	notificationDomain "forgefit/internal/domain/notification"
	profileDomain "forgefit/internal/domain/profile"
)

// ProfileLookup resolves the contact channels of an event's recipient.
type ProfileLookup interface {
	GetContact(ctx context.Context, userID string) (profileDomain.Profile, error)
}

// OutcomeRecorder persists the delivery outcome onto the event's stored row.
type OutcomeRecorder interface {
	MarkDelivered(ctx context.Context, id string, outcome notificationDomain.Outcome) error
}

// DispatchNotificationDeps holds dependencies for DispatchNotification.
// A nil sender leaves its channel unconfigured.
type DispatchNotificationDeps struct {
	ProfileStore ProfileLookup
	OutcomeStore OutcomeRecorder
	EmailSender  emailAdapter.Sender
	SMSSender    smsAdapter.Sender
	Email        config.EmailConfig
	SMS          config.SMSConfig
	Policy       string // config.PolicyIsolate (default) or config.PolicyAbort
	Collector    *perf.Collector
	Now          func() time.Time
}

// DispatchResult reports what happened to one event.
type DispatchResult struct {
	Status    string
	SentEmail bool
	SentSMS   bool
	SentAt    time.Time
	Channels  []notificationDomain.ChannelResult
}

// ExecuteDispatchNotification delivers one event over every eligible channel and records the outcome.
// Channels run sequentially, email before SMS, each at most once. Missing credentials or
// recipient data skip a channel silently.
// PRE: deps.ProfileStore, deps.OutcomeStore and deps.Now are set
// POST: Invalid events return StatusIgnored with no outbound calls.
// Under the isolate policy a channel failure is captured in its ChannelResult, later channels
// still run and the partial outcome is persisted. Under the abort policy the first channel
// error is returned and nothing is persisted.
func ExecuteDispatchNotification(ctx context.Context, event notificationDomain.Event, deps DispatchNotificationDeps) (DispatchResult, error) {
	if err := event.Validate(); err != nil {
		slog.Info("notification_ignored", "event_id", event.ID, "reason", err.Error())
		return DispatchResult{Status: notificationDomain.StatusIgnored}, nil
	}

	recipient, err := deps.ProfileStore.GetContact(ctx, event.UserID)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("resolving recipient: %w", err)
	}

	channels := make([]notificationDomain.ChannelResult, 0, 2)

	emailResult := deliverEmail(ctx, event, recipient, deps)
	if emailResult.Failed() && deps.Policy == config.PolicyAbort {
		slog.Warn("notification_aborted", "event_id", event.ID, "channel", notificationDomain.ChannelEmail, "error", emailResult.Detail)
		return DispatchResult{}, &ChannelError{Channel: notificationDomain.ChannelEmail, Message: emailResult.Detail}
	}
	channels = append(channels, emailResult)

	smsResult := deliverSMS(ctx, event, recipient, deps)
	if smsResult.Failed() && deps.Policy == config.PolicyAbort {
		slog.Warn("notification_aborted", "event_id", event.ID, "channel", notificationDomain.ChannelSMS, "error", smsResult.Detail)
		return DispatchResult{}, &ChannelError{Channel: notificationDomain.ChannelSMS, Message: smsResult.Detail}
	}
	channels = append(channels, smsResult)

	outcome := notificationDomain.NewOutcome(channels, deps.Now())
	if err := deps.OutcomeStore.MarkDelivered(ctx, event.ID, outcome); err != nil {
		return DispatchResult{}, fmt.Errorf("recording outcome: %w", err)
	}

	status := notificationDomain.StatusSent
	for _, c := range channels {
		if c.Failed() {
			status = notificationDomain.StatusPartial
		}
	}

	slog.Info("notification_dispatched",
		"event_id", event.ID,
		"user_id", event.UserID,
		"status", status,
		"sent_email", outcome.SentEmail,
		"sent_sms", outcome.SentSMS,
	)
	return DispatchResult{
		Status:    status,
		SentEmail: outcome.SentEmail,
		SentSMS:   outcome.SentSMS,
		SentAt:    outcome.SentAt,
		Channels:  channels,
	}, nil
}

// ChannelError is returned under the abort policy when a provider rejects a send.
// Its message is the provider's error text.
type ChannelError struct {
	Channel string
	Message string
}

func (e *ChannelError) Error() string {
	return e.Message
}

func deliverEmail(ctx context.Context, event notificationDomain.Event, recipient profileDomain.Profile, deps DispatchNotificationDeps) notificationDomain.ChannelResult {
	result := notificationDomain.ChannelResult{Channel: notificationDomain.ChannelEmail}
	switch {
	case deps.EmailSender == nil || !deps.Email.Complete():
		result.Detail = "not configured"
		return result
	case !recipient.HasEmail():
		result.Detail = "no recipient email"
		return result
	}

	subject := deps.Email.Subject
	if subject == "" {
		subject = config.DefaultEmailSubject
	}

	result.Attempted = true
	start := time.Now()
	sent, err := deps.EmailSender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{recipient.Email},
		From:    deps.Email.From,
		Subject: subject,
		HTML:    emailAdapter.RenderHTML(event.Message),
	})
	deps.Collector.Since(perf.KindProvider, "provider.email", start, err != nil)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.OK = true
	result.Detail = sent.MessageID
	return result
}

func deliverSMS(ctx context.Context, event notificationDomain.Event, recipient profileDomain.Profile, deps DispatchNotificationDeps) notificationDomain.ChannelResult {
	result := notificationDomain.ChannelResult{Channel: notificationDomain.ChannelSMS}
	switch {
	case deps.SMSSender == nil || !deps.SMS.Complete():
		result.Detail = "not configured"
		return result
	case !recipient.HasPhone():
		result.Detail = "no recipient phone"
		return result
	}

	result.Attempted = true
	start := time.Now()
	sent, err := deps.SMSSender.Send(ctx, smsAdapter.SendRequest{
		To:   recipient.Phone,
		From: deps.SMS.From,
		Body: event.Message,
	})
	deps.Collector.Since(perf.KindProvider, "provider.sms", start, err != nil)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.OK = true
	result.Detail = sent.MessageID
	return result
}
