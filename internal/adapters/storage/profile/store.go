package profile

import (
	"context"

	domain "forgefit/internal/domain/profile"
)

// Store resolves a member's contact channels.
// A missing profile is not an error: implementations return a zero Profile.
type Store interface {
	GetContact(ctx context.Context, userID string) (domain.Profile, error)
}
