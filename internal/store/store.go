// Package store is the persistence boundary used by the auth and service
// layers. Visibility inserts are insert-if-absent: a row that already exists
// is reported through the existed flag, never as an error.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// ProfileUpdate carries the display attributes a user may edit. Nil fields
// are left unchanged.
type ProfileUpdate struct {
	Name  *string
	Image *string
	Alias *string
	Bio   *string
}

type UserStore interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error
	SetUserRole(ctx context.Context, id uuid.UUID, role string) error
	SetRoleByEmails(ctx context.Context, emails []string, role string) (int64, error)
}

type VisibilityStore interface {
	InsertGlobalDeletionIfAbsent(ctx context.Context, gameID string, deletedBy uuid.UUID, at time.Time) (existed bool, err error)
	DeleteGlobalDeletions(ctx context.Context, gameID string) (int64, error)
	ListGlobalDeletions(ctx context.Context) ([]string, error)
	InsertHiddenGameIfAbsent(ctx context.Context, userID uuid.UUID, gameID string) (existed bool, err error)
	DeleteHiddenGames(ctx context.Context, userID uuid.UUID, gameID string) (int64, error)
	ListHiddenGames(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	FindUnreadNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (bool, error)
}

type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// ConsumeRefreshToken revokes a live token and returns it. Unknown,
	// revoked and expired tokens yield ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}
