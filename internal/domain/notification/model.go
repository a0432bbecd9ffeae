package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Channel constants for outbound transports.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Dispatch status constants reported to the webhook caller.
const (
	StatusSent    = "sent"
	StatusPartial = "partial"
	StatusIgnored = "ignored"
)

// Domain errors
var (
	ErrMissingFields = errors.New("notification event requires id, user id and message")
	ErrEmptyMessage  = errors.New("notification message is required")
	ErrEmptyUserID   = errors.New("notification user id is required")
)

// Event is a notification created upstream when a reservation-affecting action occurs.
// It is immutable once received.
type Event struct {
	ID      string
	UserID  string
	Message string
}

// Validate checks that the event carries every required field.
// PRE: Event was produced by Envelope.Normalize
// POST: Returns ErrMissingFields if any of ID, UserID, Message is empty
func (e Event) Validate() error {
	if e.ID == "" || e.UserID == "" || e.Message == "" {
		return ErrMissingFields
	}
	return nil
}

// Record is a stored notification row together with its delivery outcome.
type Record struct {
	ID        string
	UserID    string
	Message   string
	CreatedAt time.Time
	Outcome   Outcome
}

// Validate checks a record before it is created.
// PRE: Record struct is populated
// POST: Returns nil if the record can be stored
func (r *Record) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if r.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	return nil
}

// Event returns the dispatchable view of the record.
func (r Record) Event() Event {
	return Event{ID: r.ID, UserID: r.UserID, Message: r.Message}
}

// IsDelivered reports whether an outcome has ever been persisted for the record.
func (r Record) IsDelivered() bool {
	return !r.Outcome.SentAt.IsZero()
}

// ChannelResult captures what happened on a single channel for one event.
type ChannelResult struct {
	Channel   string `json:"channel"`
	Attempted bool   `json:"attempted"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
}

// Failed reports whether the channel was attempted and the provider rejected it.
func (c ChannelResult) Failed() bool {
	return c.Attempted && !c.OK
}

// Outcome is the per-channel success record persisted against an event.
// INVARIANT: a flag is true only after a confirmed non-error provider response.
type Outcome struct {
	SentEmail bool
	SentSMS   bool
	SentAt    time.Time
}

// NewOutcome aggregates channel results into the persisted outcome.
// PRE: results holds at most one entry per channel
// POST: SentEmail/SentSMS are true only for channels whose result is OK
func NewOutcome(results []ChannelResult, sentAt time.Time) Outcome {
	o := Outcome{SentAt: sentAt}
	for _, r := range results {
		if !r.Attempted || !r.OK {
			continue
		}
		switch r.Channel {
		case ChannelEmail:
			o.SentEmail = true
		case ChannelSMS:
			o.SentSMS = true
		}
	}
	return o
}

// Envelope is the inbound webhook body. Upstream callers either wrap the event in a
// "record" field (database webhook shape) or post it flat.
type Envelope struct {
	Record *eventFields `json:"record"`
	eventFields
}

type eventFields struct {
	ID          LooseString `json:"id"`
	UserID      LooseString `json:"user_id"`
	UserIDCamel LooseString `json:"userId"`
	Message     LooseString `json:"message"`
}

// ParseEnvelope decodes a webhook body. An empty body is treated as an empty object.
// PRE: body is the raw request payload
// POST: Returns the decoded envelope or a JSON syntax error
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if len(bytes.TrimSpace(body)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Normalize returns the canonical event, preferring the wrapped record when present.
// INVARIANT: Envelope is not mutated
func (e Envelope) Normalize() Event {
	fields := e.eventFields
	if e.Record != nil {
		fields = *e.Record
	}
	userID := string(fields.UserID)
	if userID == "" {
		userID = string(fields.UserIDCamel)
	}
	return Event{
		ID:      string(fields.ID),
		UserID:  userID,
		Message: string(fields.Message),
	}
}

// LooseString accepts a JSON string or number. null, "", 0 and false decode to "".
// Numbers are written in canonical form, so 42, 42.0 and 4.2e1 all decode to "42".
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("false")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
	case '{', '[':
		// Objects and arrays are not meaningful ids or messages.
		*s = ""
	case 't':
		*s = "true"
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		if n == 0 {
			*s = ""
			return nil
		}
		*s = LooseString(canonicalNumber(string(data), n))
	}
	return nil
}

// canonicalNumber keeps integer literals exact and formats other numbers without a
// trailing fraction or exponent where the value allows it.
func canonicalNumber(raw string, n float64) string {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
