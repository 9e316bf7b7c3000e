package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var (
	_ UserStore         = (*GormStore)(nil)
	_ VisibilityStore   = (*GormStore)(nil)
	_ NotificationStore = (*GormStore)(nil)
	_ RefreshTokenStore = (*GormStore)(nil)
)

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateUserProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error {
	changes := map[string]interface{}{}
	if update.Name != nil {
		changes["name"] = *update.Name
	}
	if update.Image != nil {
		changes["image"] = *update.Image
	}
	if update.Alias != nil {
		changes["alias"] = *update.Alias
	}
	if update.Bio != nil {
		changes["bio"] = *update.Bio
	}
	if len(changes) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetUserRole(ctx context.Context, id uuid.UUID, role string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("set role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetRoleByEmails(ctx context.Context, emails []string, role string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email IN ? AND role <> ?", emails, role).
		Update("role", role)
	if result.Error != nil {
		return 0, fmt.Errorf("set role by email: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// InsertGlobalDeletionIfAbsent relies on the unique index on game_id. A
// concurrent duplicate resolves inside the database as ON CONFLICT DO NOTHING,
// so every other failure still surfaces as an error.
func (s *GormStore) InsertGlobalDeletionIfAbsent(ctx context.Context, gameID string, deletedBy uuid.UUID, at time.Time) (bool, error) {
	row := models.GlobalDeletedGame{
		ID:        uuid.New(),
		GameID:    gameID,
		DeletedBy: deletedBy,
		DeletedAt: at,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "game_id"}}, DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("insert global deletion: %w", result.Error)
	}
	return result.RowsAffected == 0, nil
}

func (s *GormStore) DeleteGlobalDeletions(ctx context.Context, gameID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("game_id = ?", gameID).Delete(&models.GlobalDeletedGame{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete global deletions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) ListGlobalDeletions(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := s.db.WithContext(ctx).Model(&models.GlobalDeletedGame{}).
		Order("game_id").Pluck("game_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list global deletions: %w", err)
	}
	return ids, nil
}

func (s *GormStore) InsertHiddenGameIfAbsent(ctx context.Context, userID uuid.UUID, gameID string) (bool, error) {
	row := models.UserHiddenGame{
		ID:     uuid.New(),
		UserID: userID,
		GameID: gameID,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "game_id"}}, DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("insert hidden game: %w", result.Error)
	}
	return result.RowsAffected == 0, nil
}

func (s *GormStore) DeleteHiddenGames(ctx context.Context, userID uuid.UUID, gameID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ?", userID, gameID).
		Delete(&models.UserHiddenGame{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete hidden games: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) ListHiddenGames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ids := make([]string, 0)
	if err := s.db.WithContext(ctx).Model(&models.UserHiddenGame{}).
		Where("user_id = ?", userID).
		Order("game_id").Pluck("game_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list hidden games: %w", err)
	}
	return ids, nil
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *GormStore) FindUnreadNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	notifications := make([]models.Notification, 0)
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND read = ?", userID, false).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("find unread notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead reports whether a row moved from unread to read. Rows
// that are already read or belong to someone else are left untouched.
func (s *GormStore) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read = ?", id, userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at})
	if result.Error != nil {
		return false, fmt.Errorf("mark notification read: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *GormStore) ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
			return notFound(err)
		}
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", stored.ID, false).
			Update("revoked", true)
		if result.Error != nil {
			return result.Error
		}
		// Lost a race with a concurrent refresh of the same token.
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if now.After(stored.ExpiresAt) {
		return nil, ErrNotFound
	}
	stored.Revoked = true
	return &stored, nil
}

func (s *GormStore) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	if err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error; err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
