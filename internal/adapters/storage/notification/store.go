package notification

import (
	"context"

	domain "forgefit/internal/domain/notification"
)

// DefaultListLimit is how many notifications ListRecentByUser returns when no limit is given.
const DefaultListLimit = 6

// OutcomeStore records the delivery outcome onto an event's stored row.
type OutcomeStore interface {
	MarkDelivered(ctx context.Context, id string, outcome domain.Outcome) error
}

// Store persists notification rows and their outcomes.
type Store interface {
	OutcomeStore
	Create(ctx context.Context, r domain.Record) (domain.Record, error)
	GetByID(ctx context.Context, id string) (domain.Record, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.Record, error)
}
