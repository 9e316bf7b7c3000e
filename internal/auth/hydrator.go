package auth

import (
	"context"
	"errors"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/google/uuid"
)

type UserFinder interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Hydrator rebuilds a Principal from storage. It must run on every
// authorization-sensitive request and never caches, so a demotion is seen by
// the very next request even while the old session token is still valid.
type Hydrator struct {
	users UserFinder
}

func NewHydrator(users UserFinder) *Hydrator {
	return &Hydrator{users: users}
}

// Hydrate returns apperr.ErrUnauthenticated when the subject no longer
// resolves to a user.
func (h *Hydrator) Hydrate(ctx context.Context, subjectID uuid.UUID) (Principal, error) {
	if subjectID == uuid.Nil {
		return Principal{}, apperr.ErrUnauthenticated
	}
	user, err := h.users.FindUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, apperr.ErrUnauthenticated
		}
		return Principal{}, apperr.Persistence("hydrate principal", err)
	}
	return fromUser(user), nil
}
