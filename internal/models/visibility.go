package models

import (
	"time"

	"github.com/google/uuid"
)

// GlobalDeletedGame removes a catalog entry for every caller. At most one row
// exists per game.
type GlobalDeletedGame struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	GameID    string    `gorm:"size:255;not null;uniqueIndex:idx_global_deleted_games_game" json:"game_id"`
	DeletedBy uuid.UUID `gorm:"type:uuid;not null" json:"deleted_by"`
	DeletedAt time.Time `gorm:"not null" json:"deleted_at"`
}

func (GlobalDeletedGame) TableName() string {
	return "global_deleted_games"
}

// UserHiddenGame hides a catalog entry for a single user.
type UserHiddenGame struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_hidden_games_user_game" json:"user_id"`
	GameID    string    `gorm:"size:255;not null;uniqueIndex:idx_user_hidden_games_user_game" json:"game_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserHiddenGame) TableName() string {
	return "user_hidden_games"
}
