package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"forgefit/internal/adapters/http/perf"
	notificationStore "forgefit/internal/adapters/storage/notification"
	profileStore "forgefit/internal/adapters/storage/profile"
	notificationDomain "forgefit/internal/domain/notification"
	profileDomain "forgefit/internal/domain/profile"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxErrorBody       = 2048
	// timestampLayout matches the millisecond UTC form the hosted client writes.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Config describes the hosted backend connection.
type Config struct {
	BaseURL    string // project URL, e.g. https://project.supabase.co
	Credential string // service role key
	HTTPClient *http.Client
	Collector  *perf.Collector
}

// Client talks to the hosted backend's auto-generated REST interface.
// It implements both the profile and notification stores.
type Client struct {
	baseURL    *url.URL
	credential string
	http       *http.Client
	collector  *perf.Collector
	now        func() time.Time
}

var (
	_ profileStore.Store      = (*Client)(nil)
	_ notificationStore.Store = (*Client)(nil)
)

// New creates a Client from the supplied configuration.
// PRE: cfg.BaseURL and cfg.Credential are non-empty
// POST: Returns a ready-to-use client, or an error for missing credentials or a bad URL
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	credential := strings.TrimSpace(cfg.Credential)
	if base == "" || credential == "" {
		return nil, errors.New("rest: base url and credential are required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		credential: credential,
		http:       client,
		collector:  cfg.Collector,
		now:        time.Now,
	}, nil
}

type profileRow struct {
	ID    *string `json:"id"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// GetContact reads the email and phone of one profile.
// PRE: userID is non-empty
// POST: Returns the first matching profile, or a zero Profile when none matches
func (c *Client) GetContact(ctx context.Context, userID string) (profileDomain.Profile, error) {
	q := url.Values{}
	q.Set("id", "eq."+userID)
	q.Set("select", "email,phone")

	var rows []profileRow
	if err := c.do(ctx, http.MethodGet, "profiles", q, nil, &rows, "profiles.get"); err != nil {
		return profileDomain.Profile{}, err
	}
	if len(rows) == 0 {
		return profileDomain.Profile{}, nil
	}
	return profileDomain.New(userID, deref(rows[0].Email), deref(rows[0].Phone)), nil
}

type outcomePatch struct {
	SentEmail bool   `json:"sent_email"`
	SentSMS   bool   `json:"sent_sms"`
	SentAt    string `json:"sent_at"`
}

// MarkDelivered applies a partial update of the outcome columns to one notification.
// PRE: id is non-empty; outcome.SentAt is set
// POST: The backend accepted the update
func (c *Client) MarkDelivered(ctx context.Context, id string, outcome notificationDomain.Outcome) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	body := outcomePatch{
		SentEmail: outcome.SentEmail,
		SentSMS:   outcome.SentSMS,
		SentAt:    outcome.SentAt.UTC().Format(timestampLayout),
	}
	return c.do(ctx, http.MethodPatch, "notifications", q, body, nil, "notifications.patch")
}

// notificationRow is decoded from the backend, whose id columns may be text or bigint.
type notificationRow struct {
	ID        notificationDomain.LooseString `json:"id"`
	UserID    notificationDomain.LooseString `json:"user_id"`
	Message   string                         `json:"message"`
	CreatedAt string                         `json:"created_at,omitempty"`
	SentEmail bool                           `json:"sent_email"`
	SentSMS   bool                           `json:"sent_sms"`
	SentAt    *string                        `json:"sent_at"`
}

const notificationColumns = "id,user_id,message,created_at,sent_email,sent_sms,sent_at"

// Create inserts a notification and returns the stored representation.
// PRE: r.UserID and r.Message are non-empty
// POST: Returns the record as stored, including the backend-assigned id when r.ID was empty
func (c *Client) Create(ctx context.Context, r notificationDomain.Record) (notificationDomain.Record, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = c.now()
	}
	if err := r.Validate(); err != nil {
		return notificationDomain.Record{}, err
	}
	in := map[string]any{
		"user_id":    r.UserID,
		"message":    r.Message,
		"created_at": r.CreatedAt.UTC().Format(timestampLayout),
	}
	if r.ID != "" {
		in["id"] = r.ID
	}
	q := url.Values{}
	q.Set("select", notificationColumns)

	var rows []notificationRow
	if err := c.do(ctx, http.MethodPost, "notifications", q, in, &rows, "notifications.create"); err != nil {
		return notificationDomain.Record{}, err
	}
	if len(rows) == 0 {
		return notificationDomain.Record{}, errors.New("rest: insert returned no representation")
	}
	return rows[0].toDomain()
}

// GetByID retrieves one notification.
// PRE: id is non-empty
// POST: Returns the record or notification.ErrNotFound
func (c *Client) GetByID(ctx context.Context, id string) (notificationDomain.Record, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", notificationColumns)

	var rows []notificationRow
	if err := c.do(ctx, http.MethodGet, "notifications", q, nil, &rows, "notifications.get"); err != nil {
		return notificationDomain.Record{}, err
	}
	if len(rows) == 0 {
		return notificationDomain.Record{}, notificationStore.ErrNotFound
	}
	return rows[0].toDomain()
}

// ListRecentByUser returns a user's newest notifications first.
// PRE: userID is non-empty; limit <= 0 selects notification.DefaultListLimit
// POST: Returns at most limit records ordered by created_at descending
func (c *Client) ListRecentByUser(ctx context.Context, userID string, limit int) ([]notificationDomain.Record, error) {
	if limit <= 0 {
		limit = notificationStore.DefaultListLimit
	}
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", notificationColumns)
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []notificationRow
	if err := c.do(ctx, http.MethodGet, "notifications", q, nil, &rows, "notifications.list"); err != nil {
		return nil, err
	}
	records := make([]notificationDomain.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// do sends one request to /rest/v1/<table> and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, in, out any, op string) (err error) {
	start := time.Now()
	defer func() { c.collector.Since(perf.KindProvider, "rest."+op, start, err != nil) }()

	endpoint := c.baseURL.JoinPath("rest", "v1", table)
	endpoint.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rest: encode %s body: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("rest: build %s request: %w", op, err)
	}
	req.Header.Set("apikey", c.credential)
	req.Header.Set("Authorization", "Bearer "+c.credential)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("rest: %s failed (%s): %s", op, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rest: decode %s response: %w", op, err)
	}
	return nil
}

func (row notificationRow) toDomain() (notificationDomain.Record, error) {
	r := notificationDomain.Record{
		ID:      string(row.ID),
		UserID:  string(row.UserID),
		Message: row.Message,
		Outcome: notificationDomain.Outcome{SentEmail: row.SentEmail, SentSMS: row.SentSMS},
	}
	if row.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return notificationDomain.Record{}, fmt.Errorf("rest: parse created_at of %s: %w", row.ID, err)
		}
		r.CreatedAt = t
	}
	if row.SentAt != nil && *row.SentAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *row.SentAt)
		if err != nil {
			return notificationDomain.Record{}, fmt.Errorf("rest: parse sent_at of %s: %w", row.ID, err)
		}
		r.Outcome.SentAt = t
	}
	return r, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
