package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"forgefit/internal/adapters/storage"
	domain "forgefit/internal/domain/notification"
)

// timeLayout is fixed-width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// ErrNotFound is returned by GetByID when no row matches.
var ErrNotFound = errors.New("notification not found")

// SQLStore implements Store on SQLite or Postgres.
type SQLStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

type recordRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Message   string         `db:"message"`
	CreatedAt string         `db:"created_at"`
	SentEmail bool           `db:"sent_email"`
	SentSMS   bool           `db:"sent_sms"`
	SentAt    sql.NullString `db:"sent_at"`
}

const selectColumns = `SELECT id, user_id, message, created_at, sent_email, sent_sms, sent_at FROM notifications`

// Create inserts a new notification row. An empty ID is replaced with a UUID and a zero
// CreatedAt with the current time.
// PRE: r.UserID and r.Message are non-empty
// POST: Returns the stored record with ID and CreatedAt populated
func (s *SQLStore) Create(ctx context.Context, r domain.Record) (domain.Record, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if err := r.Validate(); err != nil {
		return domain.Record{}, err
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO notifications (id, user_id, message, created_at, sent_email, sent_sms, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.UserID, r.Message, r.CreatedAt.Format(timeLayout),
		r.Outcome.SentEmail, r.Outcome.SentSMS, nullTime(r.Outcome.SentAt))
	if err != nil {
		return domain.Record{}, fmt.Errorf("creating notification: %w", err)
	}
	return r, nil
}

// GetByID retrieves a notification by its ID.
// PRE: id is non-empty
// POST: Returns the record or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectColumns+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("loading notification %s: %w", id, err)
	}
	return row.toDomain()
}

// MarkDelivered writes the delivery outcome onto the notification row.
// A missing row is logged, not reported, matching a filtered update on the hosted backend.
// PRE: id is non-empty; outcome.SentAt is set
// POST: sent_email, sent_sms and sent_at reflect outcome
func (s *SQLStore) MarkDelivered(ctx context.Context, id string, outcome domain.Outcome) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE notifications SET sent_email = ?, sent_sms = ?, sent_at = ? WHERE id = ?`),
		outcome.SentEmail, outcome.SentSMS, nullTime(outcome.SentAt), id)
	if err != nil {
		return fmt.Errorf("recording outcome for notification %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Warn("notification_outcome_no_row", "event_id", id)
	}
	return nil
}

// ListRecentByUser returns a user's newest notifications first.
// PRE: userID is non-empty; limit <= 0 selects DefaultListLimit
// POST: Returns at most limit records ordered by created_at DESC
func (s *SQLStore) ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(selectColumns+` WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for %s: %w", userID, err)
	}
	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (row recordRow) toDomain() (domain.Record, error) {
	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return domain.Record{}, fmt.Errorf("parsing created_at of %s: %w", row.ID, err)
	}
	r := domain.Record{
		ID:        row.ID,
		UserID:    row.UserID,
		Message:   row.Message,
		CreatedAt: createdAt,
		Outcome:   domain.Outcome{SentEmail: row.SentEmail, SentSMS: row.SentSMS},
	}
	if row.SentAt.Valid && row.SentAt.String != "" {
		sentAt, err := time.Parse(timeLayout, row.SentAt.String)
		if err != nil {
			return domain.Record{}, fmt.Errorf("parsing sent_at of %s: %w", row.ID, err)
		}
		r.Outcome.SentAt = sentAt
	}
	return r, nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
