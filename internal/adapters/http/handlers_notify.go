package web

import (
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"forgefit/internal/application/orchestrators"
	"forgefit/internal/config"
	notificationDomain "forgefit/internal/domain/notification"
)

// webhookSecretHeader carries the shared secret set on the upstream database webhook.
const webhookSecretHeader = "X-Webhook-Secret"

type statusResponse struct {
	Status string `json:"status"`
}

type dispatchResponse struct {
	Status    string                             `json:"status"`
	SentEmail bool                               `json:"sentEmail"`
	SentSMS   bool                               `json:"sentSms"`
	Channels  []notificationDomain.ChannelResult `json:"channels,omitempty"`
}

// handleNotify receives a notification event and dispatches it.
// Checks run in order: method, shared secret, storage configuration, body.
func handleNotify(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		if !authorized(d.Config, r.Header.Get(webhookSecretHeader)) {
			slog.Warn("webhook_unauthorized", "remote_addr", r.RemoteAddr)
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if err := d.Config.Storage.Validate(); err != nil || d.Profiles == nil || d.Outcomes == nil {
			slog.Error("webhook_storage_unconfigured", "driver", d.Config.Storage.Driver, "error", err)
			writeError(w, r, http.StatusInternalServerError, "Missing storage credentials")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			writeError(w, r, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		envelope, err := notificationDomain.ParseEnvelope(body)
		if err != nil {
			slog.Warn("webhook_invalid_json", "error", err)
			writeError(w, r, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		event := envelope.Normalize()
		if err := event.Validate(); err != nil {
			slog.Info("notification_ignored", "event_id", event.ID, "reason", err.Error())
			render.JSON(w, r, statusResponse{Status: notificationDomain.StatusIgnored})
			return
		}

		result, err := orchestrators.ExecuteDispatchNotification(r.Context(), event, orchestrators.DispatchNotificationDeps{
			ProfileStore: d.Profiles,
			OutcomeStore: d.Outcomes,
			EmailSender:  d.EmailSender,
			SMSSender:    d.SMSSender,
			Email:        d.Config.Email,
			SMS:          d.Config.SMS,
			Policy:       d.Config.FailurePolicy,
			Collector:    d.Collector,
			Now:          d.Now,
		})
		if err != nil {
			slog.Error("notification_dispatch_failed", "event_id", event.ID, "error", err)
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}

		resp := dispatchResponse{
			Status:    result.Status,
			SentEmail: result.SentEmail,
			SentSMS:   result.SentSMS,
		}
		if d.Config.FailurePolicy != config.PolicyAbort {
			resp.Channels = result.Channels
		}
		render.JSON(w, r, resp)
	}
}

// authorized reports whether the presented secret matches the configured one.
// With no secret configured every caller is accepted.
func authorized(cfg *config.Config, presented string) bool {
	switch {
	case cfg.WebhookSecretHash != "":
		return bcrypt.CompareHashAndPassword([]byte(cfg.WebhookSecretHash), []byte(presented)) == nil
	case cfg.WebhookSecret != "":
		return subtle.ConstantTimeCompare([]byte(cfg.WebhookSecret), []byte(presented)) == 1
	default:
		return true
	}
}
