package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ProviderEmail    = "email"
	ProviderExternal = "external"
)

// User is the identity record. Password holds a bcrypt hash and is empty for
// externally provisioned accounts, which can never authenticate with credentials.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string         `gorm:"not null;size:255;uniqueIndex:idx_users_email" json:"email"`
	Password     string         `gorm:"not null;default:''" json:"-"`
	Role         string         `gorm:"size:20;not null;default:'user'" json:"role"`
	Name         string         `gorm:"size:100" json:"name"`
	Image        string         `gorm:"size:500" json:"image"`
	Alias        string         `gorm:"size:50" json:"alias"`
	Bio          string         `gorm:"size:500" json:"bio"`
	AuthProvider string         `gorm:"size:50;default:'email'" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasPassword reports whether the user can authenticate with credentials.
func (u *User) HasPassword() bool {
	return u.Password != ""
}
