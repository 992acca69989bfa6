package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db}
}

func (r *PaymentRepository) GetPaymentsByOrder(ctx context.Context, orderID int) ([]*model.Payment, error) {
	query := `SELECT id, order_id, status, amount, method, transaction_ref, paid_at, created_at, updated_at
			  FROM payments WHERE order_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		util.Logger.Error("查询支付记录失败", zap.Error(err), zap.Int("order_id", orderID))
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		var p model.Payment
		var status string
		var ref sql.NullString
		var paidAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.OrderID, &status, &p.Amount, &p.Method, &ref, &paidAt,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			util.Logger.Error("扫描支付记录失败",
				zap.Error(err),
				zap.String("error_type", fmt.Sprintf("%T", err)))
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Status = model.PaymentStatus(status)
		if ref.Valid {
			p.TransactionRef = &ref.String
		}
		if paidAt.Valid {
			p.PaidAt = &paidAt.Time
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// SumPaidAmount 所有状态为 paid 的支付金额合计
func (r *PaymentRepository) SumPaidAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM payments WHERE status = ?`, string(model.PaymentPaid)).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *PaymentRepository) CreateRefundRequest(ctx context.Context, request *model.RefundRequest) error {
	util.Logger.Info("开始创建退款申请",
		zap.Int("order_id", request.OrderID),
		zap.Int("user_id", request.UserID),
		zap.String("amount", request.Amount.String()))

	if request.Status == "" {
		request.Status = model.RefundRequested
	}
	request.CreatedAt = time.Now()

	query := `INSERT INTO refund_requests (order_id, user_id, amount, reason, status, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		request.OrderID, request.UserID, request.Amount, request.Reason, request.Status, request.CreatedAt)
	if err != nil {
		util.Logger.Error("创建退款申请失败", zap.Error(err), zap.Int("order_id", request.OrderID))
		return fmt.Errorf("failed to create refund request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	request.ID = int(id)
	util.Logger.Info("退款申请创建成功", zap.Int("refund_id", request.ID))
	return nil
}

func (r *PaymentRepository) GetRefundStatus(ctx context.Context, orderID int) (*model.RefundRequest, error) {
	query := `SELECT id, order_id, user_id, amount, reason, status, created_at
			  FROM refund_requests WHERE order_id = ? ORDER BY id DESC LIMIT 1`

	var request model.RefundRequest
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&request.ID, &request.OrderID, &request.UserID, &request.Amount,
		&request.Reason, &request.Status, &request.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("查询退款申请失败", zap.Error(err), zap.Int("order_id", orderID))
		return nil, fmt.Errorf("failed to get refund request: %w", err)
	}
	return &request, nil
}

func (r *PaymentRepository) CountRefundRequests(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refund_requests WHERE status = ?`, model.RefundRequested).Scan(&n)
	return n, err
}
