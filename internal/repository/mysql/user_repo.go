package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/util"

	"go.uber.org/zap"
)

// userRepository 只读取下单用户的联系方式，账号本身由外部系统管理
type userRepository struct {
	db *sql.DB
}

// NewUserRepository 创建一个新的 userRepository 实例
func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db}
}

// GetContact 查询用户邮箱，用户不存在时返回 nil, nil
func (r *userRepository) GetContact(ctx context.Context, userID int) (*model.UserContact, error) {
	var contact model.UserContact
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email FROM users WHERE id = ?`, userID).Scan(
		&contact.ID, &contact.Username, &contact.Email)
	if err == sql.ErrNoRows {
		util.Logger.Info("用户不存在", zap.Int("user_id", userID))
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("查找用户失败", zap.Error(err), zap.Int("user_id", userID))
		return nil, fmt.Errorf("failed to get user contact: %w", err)
	}
	return &contact, nil
}
