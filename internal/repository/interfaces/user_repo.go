package interfaces

import (
	"context"

	"travel-booking-backend/internal/model"
)

// UserRepository 外部用户系统的只读视图
type UserRepository interface {
	GetContact(ctx context.Context, userID int) (*model.UserContact, error)
}
