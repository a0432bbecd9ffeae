package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.twilio.com"
	defaultHTTPTimeout = 15 * time.Second
	// maxErrorBody caps how much of a failed response is carried into the error.
	maxErrorBody = 2048
)

// TwilioConfig describes the Twilio client configuration.
type TwilioConfig struct {
	AccountID  string
	AuthToken  string
	From       string
	BaseURL    string
	HTTPClient *http.Client
}

// TwilioSender sends text messages through the Twilio Messages API.
type TwilioSender struct {
	accountID string
	authToken string
	from      string
	baseURL   *url.URL
	http      *http.Client
	now       func() time.Time
}

// NewTwilioSender creates a sender from the supplied configuration.
// PRE: cfg.AccountID and cfg.AuthToken are set
// POST: Returns a ready-to-use sender, or an error for missing credentials or a bad base URL
func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	accountID := strings.TrimSpace(cfg.AccountID)
	authToken := strings.TrimSpace(cfg.AuthToken)
	if accountID == "" || authToken == "" {
		return nil, errors.New("twilio: account id and auth token are required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("twilio: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &TwilioSender{
		accountID: accountID,
		authToken: authToken,
		from:      strings.TrimSpace(cfg.From),
		baseURL:   baseURL,
		http:      client,
		now:       time.Now,
	}, nil
}

type messageResponse struct {
	SID string `json:"sid"`
}

// Send posts one message as a form-encoded request with basic auth.
// PRE: req.To and req.Body are non-empty
// POST: Returns the message SID on a 2xx response; any other status is an error carrying the response body
func (s *TwilioSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	from := req.From
	if from == "" {
		from = s.from
	}
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", req.To)
	form.Set("Body", req.Body)

	endpoint := s.baseURL.JoinPath("2010-04-01", "Accounts", s.accountID, "Messages.json")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio: build request: %w", err)
	}
	httpReq.SetBasicAuth(s.accountID, s.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		slog.Error("twilio_send_failed", "error", err, "to", req.To)
		return SendResult{}, fmt.Errorf("twilio: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Error("twilio_send_failed", "status", resp.StatusCode, "to", req.To)
		return SendResult{}, fmt.Errorf("twilio error (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var msg messageResponse
	// A 2xx without a decodable SID still counts as delivered.
	_ = json.NewDecoder(resp.Body).Decode(&msg)

	slog.Info("twilio_sent", "message_id", msg.SID, "to", req.To)
	return SendResult{MessageID: msg.SID, SentAt: s.now()}, nil
}
