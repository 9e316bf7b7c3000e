package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is delivered by polling until dismissed. Read is terminal.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user_read" json:"user_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Read      bool       `gorm:"not null;default:false;index:idx_notifications_user_read" json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
