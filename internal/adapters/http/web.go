package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"forgefit/internal/adapters/email"
	"forgefit/internal/adapters/http/middleware"
	"forgefit/internal/adapters/http/perf"
	"forgefit/internal/adapters/sms"
	notificationStore "forgefit/internal/adapters/storage/notification"
	profileStore "forgefit/internal/adapters/storage/profile"
	"forgefit/internal/config"
)

// maxBodyBytes caps the webhook payload.
const maxBodyBytes = 1 << 20

// Deps holds everything the HTTP layer needs. Stores are nil when storage is not configured;
// the webhook then answers with a configuration error.
type Deps struct {
	Config      *config.Config
	Profiles    profileStore.Store
	Outcomes    notificationStore.OutcomeStore
	EmailSender email.Sender
	SMSSender   sms.Sender
	Collector   *perf.Collector
	Now         func() time.Time
}

// NewRouter builds the HTTP handler with middleware.
// The rate limiter guarding /debug/perf sweeps until ctx is cancelled.
// PRE: d.Config is non-nil
// POST: Returns a handler serving /api/notify, /healthz and, outside production, /debug/perf
func NewRouter(ctx context.Context, d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	limiter := middleware.NewRateLimiter(ctx, d.Config.RateLimitPerSecond, time.Second)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Timing(d.Collector, d.Config.SlowRequestMs))

	r.Get("/healthz", handleHealth)
	if !d.Config.IsProduction() {
		r.With(middleware.RateLimit(limiter)).Get("/debug/perf", handlePerf(d.Collector, d.Now))
	}
	// Every webhook delivery is dispatched; upstream bursts arrive from one address.
	r.Handle("/api/notify", handleNotify(d))

	slog.Debug("router_ready", "env", d.Config.Env, "failure_policy", d.Config.FailurePolicy)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handlePerf serves timing aggregates for the last hour.
func handlePerf(collector *perf.Collector, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if collector == nil {
			render.JSON(w, r, perf.Snapshot{})
			return
		}
		render.JSON(w, r, collector.Snapshot(now().Add(-time.Hour), 10))
	}
}

// writeError responds with {"error": msg}.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

type errorResponse struct {
	Error string `json:"error"`
}
