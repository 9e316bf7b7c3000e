package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/google/uuid"
)

const (
	defaultPollLimit      = 50
	maxPollLimit          = 200
	maxNotificationLength = 1000
)

// NotificationService serves the pull-based inbox. Clients poll FetchUnread
// on an interval, so delivery latency is bounded by that interval.
type NotificationService struct {
	notifications store.NotificationStore
	users         auth.UserFinder
	pollLimit     int
	now           func() time.Time
}

func NewNotificationService(notifications store.NotificationStore, users auth.UserFinder, pollLimit int) *NotificationService {
	switch {
	case pollLimit <= 0:
		pollLimit = defaultPollLimit
	case pollLimit > maxPollLimit:
		pollLimit = maxPollLimit
	}
	return &NotificationService{
		notifications: notifications,
		users:         users,
		pollLimit:     pollLimit,
		now:           time.Now,
	}
}

// FetchUnread returns the caller's unread notifications, oldest first.
func (s *NotificationService) FetchUnread(ctx context.Context, p auth.Principal) ([]models.Notification, error) {
	if !p.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	list, err := s.notifications.FindUnreadNotifications(ctx, p.SubjectID(), s.pollLimit)
	if err != nil {
		return nil, apperr.Persistence("fetch unread notifications", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

// Dismiss marks a notification read. Already-read, unknown and foreign ids
// are no-op successes so concurrent viewers of one session never race into
// errors.
func (s *NotificationService) Dismiss(ctx context.Context, p auth.Principal, notificationID uuid.UUID) error {
	if !p.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	if notificationID == uuid.Nil {
		return apperr.Validation("id", "is required")
	}
	if _, err := s.notifications.MarkNotificationRead(ctx, p.SubjectID(), notificationID, s.now().UTC()); err != nil {
		return apperr.Persistence("dismiss notification", err)
	}
	return nil
}

// Create stores a notification produced by the external content generator.
func (s *NotificationService) Create(ctx context.Context, userID uuid.UUID, content string) (*models.Notification, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("userId", "is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content", "is required")
	}
	if utf8.RuneCountInString(content) > maxNotificationLength {
		return nil, apperr.Validation("content", "must be at most 1000 characters long")
	}
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Validation("userId", "does not match a user")
		}
		return nil, apperr.Persistence("find notification recipient", err)
	}

	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, apperr.Persistence("create notification", err)
	}
	return n, nil
}
