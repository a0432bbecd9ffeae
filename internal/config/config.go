package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Storage driver names.
const (
	DriverREST     = "rest"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Failure policies for channel errors during dispatch.
const (
	PolicyIsolate = "isolate"
	PolicyAbort   = "abort"
)

// DefaultEmailSubject is the subject line of every notification email.
const DefaultEmailSubject = "ForgeFit Notification"

// ErrStorageNotConfigured is reported when the storage backend lacks its credentials.
var ErrStorageNotConfigured = errors.New("missing storage credentials")

// StorageConfig selects and addresses the backend holding profiles and notifications.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	URL        string `mapstructure:"url"`        // hosted REST base URL (rest driver)
	Credential string `mapstructure:"credential"` // service role key (rest driver)
	DSN        string `mapstructure:"dsn"`        // sqlite path or postgres DSN
}

// Validate reports ErrStorageNotConfigured when the selected driver cannot connect.
// PRE: none
// POST: Returns nil when the driver has everything it needs
func (s StorageConfig) Validate() error {
	switch s.Driver {
	case DriverREST, "":
		if s.URL == "" || s.Credential == "" {
			return ErrStorageNotConfigured
		}
	case DriverSQLite, DriverPostgres:
		if s.DSN == "" {
			return ErrStorageNotConfigured
		}
	default:
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}
	return nil
}

// IsSQL reports whether the driver is backed by database/sql.
func (s StorageConfig) IsSQL() bool {
	return s.Driver == DriverSQLite || s.Driver == DriverPostgres
}

// EmailConfig holds the Resend credentials.
type EmailConfig struct {
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
	Subject string `mapstructure:"subject"`
	BaseURL string `mapstructure:"base_url"`
}

// Complete reports whether the email channel may be attempted.
func (e EmailConfig) Complete() bool {
	return e.APIKey != "" && e.From != ""
}

// SMSConfig holds the Twilio credentials.
type SMSConfig struct {
	AccountID string `mapstructure:"account_id"`
	AuthToken string `mapstructure:"auth_token"`
	From      string `mapstructure:"from"`
	BaseURL   string `mapstructure:"base_url"`
}

// Complete reports whether the SMS channel may be attempted.
func (s SMSConfig) Complete() bool {
	return s.AccountID != "" && s.AuthToken != "" && s.From != ""
}

// Config is the full runtime configuration, built once and passed to constructors.
type Config struct {
	Addr               string        `mapstructure:"addr"`
	Env                string        `mapstructure:"env"`
	LogLevel           string        `mapstructure:"log_level"`
	WebhookSecret      string        `mapstructure:"webhook_secret"`
	WebhookSecretHash  string        `mapstructure:"webhook_secret_hash"`
	FailurePolicy      string        `mapstructure:"failure_policy"`
	RateLimitPerSecond int           `mapstructure:"rate_limit_per_second"`
	SlowRequestMs      int           `mapstructure:"slow_request_ms"`
	SlowQueryMs        int           `mapstructure:"slow_query_ms"`
	Storage            StorageConfig `mapstructure:"storage"`
	Email              EmailConfig   `mapstructure:"email"`
	SMS                SMSConfig     `mapstructure:"sms"`
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// envBindings maps config keys to the environment variables that may set them.
// The first name wins when several are set.
var envBindings = map[string][]string{
	"addr":                  {"FORGEFIT_ADDR"},
	"env":                   {"FORGEFIT_ENV"},
	"log_level":             {"FORGEFIT_LOG_LEVEL"},
	"webhook_secret":        {"FORGEFIT_WEBHOOK_SECRET", "NOTIFY_WEBHOOK_SECRET"},
	"webhook_secret_hash":   {"FORGEFIT_WEBHOOK_SECRET_HASH"},
	"failure_policy":        {"FORGEFIT_FAILURE_POLICY"},
	"rate_limit_per_second": {"FORGEFIT_RATE_LIMIT_PER_SECOND"},
	"slow_request_ms":       {"FORGEFIT_SLOW_REQUEST_MS"},
	"slow_query_ms":         {"FORGEFIT_SLOW_QUERY_MS"},
	"storage.driver":        {"FORGEFIT_STORAGE_DRIVER"},
	"storage.url":           {"FORGEFIT_STORAGE_URL", "SUPABASE_URL"},
	"storage.credential":    {"FORGEFIT_STORAGE_CREDENTIAL", "SUPABASE_SERVICE_ROLE_KEY"},
	"storage.dsn":           {"FORGEFIT_STORAGE_DSN", "DATABASE_URL"},
	"email.api_key":         {"FORGEFIT_EMAIL_API_KEY", "RESEND_API_KEY"},
	"email.from":            {"FORGEFIT_EMAIL_FROM", "RESEND_FROM"},
	"email.subject":         {"FORGEFIT_EMAIL_SUBJECT"},
	"email.base_url":        {"FORGEFIT_EMAIL_BASE_URL"},
	"sms.account_id":        {"FORGEFIT_SMS_ACCOUNT_ID", "TWILIO_ACCOUNT_SID"},
	"sms.auth_token":        {"FORGEFIT_SMS_AUTH_TOKEN", "TWILIO_AUTH_TOKEN"},
	"sms.from":              {"FORGEFIT_SMS_FROM", "TWILIO_FROM"},
	"sms.base_url":          {"FORGEFIT_SMS_BASE_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("failure_policy", PolicyIsolate)
	v.SetDefault("rate_limit_per_second", 20)
	v.SetDefault("slow_request_ms", 500)
	v.SetDefault("slow_query_ms", 50)
	v.SetDefault("storage.driver", DriverREST)
	v.SetDefault("email.subject", DefaultEmailSubject)
}

// Load reads configuration from the optional file at path and from the environment.
// Environment variables override file values. A missing file is not an error.
// PRE: path may be empty
// POST: Returns a normalized Config or an error for unreadable/invalid input
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize trims values and rejects settings that can never work.
func (c *Config) normalize() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Storage.URL = strings.TrimRight(strings.TrimSpace(c.Storage.URL), "/")
	c.FailurePolicy = strings.ToLower(strings.TrimSpace(c.FailurePolicy))
	if c.Email.Subject == "" {
		c.Email.Subject = DefaultEmailSubject
	}

	switch c.FailurePolicy {
	case PolicyIsolate, PolicyAbort:
	default:
		return fmt.Errorf("failure_policy must be %q or %q, got %q", PolicyIsolate, PolicyAbort, c.FailurePolicy)
	}
	switch c.Storage.Driver {
	case DriverREST, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("storage.driver must be rest, sqlite or postgres, got %q", c.Storage.Driver)
	}
	if c.RateLimitPerSecond <= 0 {
		c.RateLimitPerSecond = 20
	}
	return nil
}
