package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"forgefit/internal/adapters/email"
	"forgefit/internal/adapters/http/perf"
	"forgefit/internal/adapters/sms"
	"forgefit/internal/adapters/storage"
	notificationStore "forgefit/internal/adapters/storage/notification"
	profileStore "forgefit/internal/adapters/storage/profile"
	"forgefit/internal/adapters/storage/rest"
	"forgefit/internal/config"
	"forgefit/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads configuration once per process and installs the default logger.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = *c.configFlag
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		logging.Setup(cfg.LogLevel)
		c.config = cfg
	})
	return c.config, c.configErr
}

// backend bundles the stores built for the configured storage driver.
// profileWriter and db are nil for the rest driver.
type backend struct {
	profiles      profileStore.Store
	notifications notificationStore.Store
	profileWriter *profileStore.SQLStore
	db            *storage.TimedDB
}

func (b *backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// openBackend connects to the configured storage. SQL drivers are migrated before use.
// PRE: cfg is loaded
// POST: Returns ready stores or config.ErrStorageNotConfigured when credentials are missing
func openBackend(ctx context.Context, cfg *config.Config, collector *perf.Collector) (*backend, error) {
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Storage.IsSQL() {
		client, err := rest.New(rest.Config{
			BaseURL:    cfg.Storage.URL,
			Credential: cfg.Storage.Credential,
			Collector:  collector,
		})
		if err != nil {
			return nil, err
		}
		return &backend{profiles: client, notifications: client}, nil
	}

	db, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	applied, err := storage.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 {
		slog.Info("schema_migrated", "driver", cfg.Storage.Driver, "applied", applied)
	}

	timed := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)
	profiles := profileStore.NewSQLStore(timed)
	return &backend{
		profiles:      profiles,
		notifications: notificationStore.NewSQLStore(timed),
		profileWriter: profiles,
		db:            timed,
	}, nil
}

// senders builds the outbound channel senders. Incomplete credentials yield a noop sender;
// the dispatcher skips that channel anyway.
func senders(cfg *config.Config) (email.Sender, sms.Sender, error) {
	var emailSender email.Sender = email.NewNoopSender()
	if cfg.Email.Complete() {
		s, err := email.NewResendSender(cfg.Email.APIKey, cfg.Email.From, cfg.Email.BaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("email sender: %w", err)
		}
		emailSender = s
	} else if cfg.IsProduction() {
		slog.Warn("email_channel_disabled", "reason", "missing api key or sender")
	}

	var smsSender sms.Sender = sms.NewNoopSender()
	if cfg.SMS.Complete() {
		s, err := sms.NewTwilioSender(sms.TwilioConfig{
			AccountID: cfg.SMS.AccountID,
			AuthToken: cfg.SMS.AuthToken,
			From:      cfg.SMS.From,
			BaseURL:   cfg.SMS.BaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("sms sender: %w", err)
		}
		smsSender = s
	} else if cfg.IsProduction() {
		slog.Warn("sms_channel_disabled", "reason", "missing account, token or sender")
	}
	return emailSender, smsSender, nil
}

var errSQLOnly = errors.New("this command requires the sqlite or postgres storage driver")

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
