package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"forgefit/internal/adapters/storage"
	domain "forgefit/internal/domain/profile"
)

// SQLStore implements Store on SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

type contactRow struct {
	ID    string         `db:"id"`
	Email sql.NullString `db:"email"`
	Phone sql.NullString `db:"phone"`
}

// GetContact returns the email and phone of the profile with the given id.
// PRE: userID is non-empty
// POST: Returns the profile, or a zero Profile when no row matches
func (s *SQLStore) GetContact(ctx context.Context, userID string) (domain.Profile, error) {
	var row contactRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT id, email, phone FROM profiles WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, nil
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("loading profile %s: %w", userID, err)
	}
	return domain.New(row.ID, row.Email.String, row.Phone.String), nil
}

// Save inserts or updates a profile's contact channels. Empty values are stored as NULL.
// PRE: p.ID is non-empty
// POST: The profile row exists with the given email and phone
func (s *SQLStore) Save(ctx context.Context, p domain.Profile) error {
	if p.ID == "" {
		return errors.New("profile id is required")
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO profiles (id, email, phone) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET email = excluded.email, phone = excluded.phone`),
		p.ID, nullStr(p.Email), nullStr(p.Phone))
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", p.ID, err)
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
