package dto

import (
	"time"

	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name" validate:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Name  string    `json:"name"`
	Image string    `json:"image"`
	Alias string    `json:"alias"`
	Bio   string    `json:"bio"`
}

func NewUserResponse(p auth.Principal) UserResponse {
	d := p.Display()
	return UserResponse{
		ID:    p.SubjectID(),
		Email: d.Email,
		Role:  string(p.Role()),
		Name:  d.Name,
		Image: d.Image,
		Alias: d.Alias,
		Bio:   d.Bio,
	}
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Image *string `json:"image" validate:"omitempty,max=500"`
	Alias *string `json:"alias" validate:"omitempty,max=50"`
	Bio   *string `json:"bio" validate:"omitempty,max=500"`
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type ErrorResponse struct {
	Error   bool              `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
