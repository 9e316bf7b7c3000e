package dto

import (
	"time"

	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/google/uuid"
)

type CreateNotificationRequest struct {
	UserID  uuid.UUID `json:"userId"`
	Content string    `json:"content"`
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

func NewNotificationResponse(n models.Notification) NotificationResponse {
	return NotificationResponse{ID: n.ID, Content: n.Content, CreatedAt: n.CreatedAt}
}
