package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/repository/interfaces"
	"travel-booking-backend/internal/util"

	"go.uber.org/zap"
)

const orderColumns = `id, order_code, order_code_compact, user_id, order_type, item_id, status,
	total_amount, currency, payment_method, payment_transaction_id, created_at, updated_at`

type OrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, now: time.Now}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *model.Order, payment *model.Payment) error {
	util.Logger.Info("开始创建订单",
		zap.Int("user_id", order.UserID),
		zap.String("order_type", string(order.OrderType)),
		zap.Int("item_id", order.ItemID),
		zap.String("total_amount", order.TotalAmount.String()))

	if order.Detail == nil || order.Detail.ItemType() != order.OrderType {
		return fmt.Errorf("order detail does not match order type %q", order.OrderType)
	}

	now := r.now()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = model.OrderPending
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (order_code, order_code_compact, user_id, order_type, item_id, status,
			  total_amount, currency, payment_method, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		order.OrderCode, order.OrderCodeCompact, order.UserID, string(order.OrderType), order.ItemID,
		string(order.Status), order.TotalAmount, order.Currency, order.PaymentMethod, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			util.Logger.Warn("订单编号冲突", zap.String("order_code", order.OrderCode))
			return interfaces.ErrOrderCodeTaken
		}
		util.Logger.Error("插入订单记录失败",
			zap.Error(err),
			zap.String("error_type", fmt.Sprintf("%T", err)))
		return fmt.Errorf("failed to insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		util.Logger.Error("获取订单ID失败", zap.Error(err))
		return fmt.Errorf("failed to get order ID: %w", err)
	}
	order.ID = int(id)

	if err := insertDetail(ctx, tx, order); err != nil {
		return err
	}

	payment.OrderID = order.ID
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if payment.Status == "" {
		payment.Status = model.PaymentPending
	}
	result, err = tx.ExecContext(ctx,
		`INSERT INTO payments (order_id, status, amount, method, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		payment.OrderID, string(payment.Status), payment.Amount, payment.Method, now, now)
	if err != nil {
		util.Logger.Error("插入支付记录失败", zap.Error(err), zap.Int("order_id", order.ID))
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	if pid, err := result.LastInsertId(); err == nil {
		payment.ID = int(pid)
	}

	if err := insertHistory(ctx, tx, order.ID, "", order.Status, "order created", now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.Payments = []*model.Payment{payment}
	util.Logger.Info("订单创建成功",
		zap.Int("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.String("status", string(order.Status)))
	return nil
}

func insertDetail(ctx context.Context, tx *sql.Tx, order *model.Order) error {
	var err error
	switch d := order.Detail.(type) {
	case *model.TourDetail:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_tour_details (order_id, quantity, booking_date, guest_info, unit_price)
			 VALUES (?, ?, ?, ?, ?)`,
			order.ID, d.Quantity, d.BookingDate, d.GuestInfo, d.UnitPrice)
	case *model.AccommodationDetail:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_accommodation_details (order_id, room_id, start_date, end_date, quantity, nights, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			order.ID, d.RoomID, d.StartDate, d.EndDate, d.Quantity, d.Nights, d.UnitPrice)
	case *model.VehicleDetail:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_vehicle_details (order_id, seat_position, seat_count, quantity, origin, destination, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			order.ID, nullableString(&d.SeatPosition), d.SeatCount, d.Quantity, d.Origin, d.Destination, d.UnitPrice)
		if err == nil && d.SeatPosition != "" {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO vehicle_seat_holds (vehicle_id, seat_position, order_id) VALUES (?, ?, ?)`,
				order.ItemID, d.SeatPosition, order.ID)
			if isDuplicateKey(err) {
				util.Logger.Warn("座位已被占用",
					zap.Int("vehicle_id", order.ItemID),
					zap.String("seat_position", d.SeatPosition))
				return interfaces.ErrSeatTaken
			}
		}
	case *model.TicketDetail:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_ticket_details (order_id, quantity, visit_date, guest_info, unit_price)
			 VALUES (?, ?, ?, ?, ?)`,
			order.ID, d.Quantity, d.VisitDate, d.GuestInfo, d.UnitPrice)
	default:
		return fmt.Errorf("unsupported detail type %T", order.Detail)
	}
	if err != nil {
		util.Logger.Error("插入订单明细失败",
			zap.Error(err),
			zap.Int("order_id", order.ID),
			zap.String("order_type", string(order.OrderType)))
		return fmt.Errorf("failed to insert order detail: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, orderID int, from, to model.OrderStatus, note string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, from_status, to_status, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		orderID, string(from), string(to), note, at)
	if err != nil {
		util.Logger.Error("写入状态历史失败", zap.Error(err), zap.Int("order_id", orderID))
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id int) (*model.Order, error) {
	return r.getOrder(ctx, "id = ?", id)
}

func (r *OrderRepository) GetOrderByCode(ctx context.Context, code string) (*model.Order, error) {
	return r.getOrder(ctx, "order_code = ?", code)
}

func (r *OrderRepository) GetOrderByCompactCode(ctx context.Context, compact string) (*model.Order, error) {
	return r.getOrder(ctx, "order_code_compact = ?", compact)
}

// getOrder 查询单个订单及其明细，不存在时返回 nil, nil
func (r *OrderRepository) getOrder(ctx context.Context, where string, arg interface{}) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			util.Logger.Info("订单不存在", zap.String("where", where), zap.Any("arg", arg))
			return nil, nil
		}
		util.Logger.Error("查询订单失败", zap.Error(err), zap.String("where", where))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadDetail(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var order model.Order
	var orderType, status string
	var txID sql.NullString
	err := row.Scan(
		&order.ID, &order.OrderCode, &order.OrderCodeCompact, &order.UserID, &orderType, &order.ItemID,
		&status, &order.TotalAmount, &order.Currency, &order.PaymentMethod, &txID,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.OrderType = model.ItemType(orderType)
	order.Status = model.OrderStatus(status)
	if txID.Valid {
		order.PaymentTransactionID = &txID.String
	}
	return &order, nil
}

// loadDetail 按订单类型读取对应明细表
func (r *OrderRepository) loadDetail(ctx context.Context, order *model.Order) error {
	var err error
	switch order.OrderType {
	case model.ItemTour:
		d := &model.TourDetail{}
		var bookingDate time.Time
		var guestInfo sql.NullString
		err = r.db.QueryRowContext(ctx,
			`SELECT quantity, booking_date, guest_info, unit_price FROM order_tour_details WHERE order_id = ?`,
			order.ID).Scan(&d.Quantity, &bookingDate, &guestInfo, &d.UnitPrice)
		d.BookingDate = bookingDate.Format(model.DateLayout)
		d.GuestInfo = guestInfo.String
		order.Detail = d
	case model.ItemAccommodation:
		d := &model.AccommodationDetail{}
		var roomID sql.NullInt64
		var start, end time.Time
		err = r.db.QueryRowContext(ctx,
			`SELECT room_id, start_date, end_date, quantity, nights, unit_price
			 FROM order_accommodation_details WHERE order_id = ?`,
			order.ID).Scan(&roomID, &start, &end, &d.Quantity, &d.Nights, &d.UnitPrice)
		if roomID.Valid {
			id := int(roomID.Int64)
			d.RoomID = &id
		}
		d.StartDate = start.Format(model.DateLayout)
		d.EndDate = end.Format(model.DateLayout)
		order.Detail = d
	case model.ItemVehicle:
		d := &model.VehicleDetail{}
		var seat sql.NullString
		err = r.db.QueryRowContext(ctx,
			`SELECT seat_position, seat_count, quantity, origin, destination, unit_price
			 FROM order_vehicle_details WHERE order_id = ?`,
			order.ID).Scan(&seat, &d.SeatCount, &d.Quantity, &d.Origin, &d.Destination, &d.UnitPrice)
		d.SeatPosition = seat.String
		order.Detail = d
	case model.ItemTicket:
		d := &model.TicketDetail{}
		var visitDate time.Time
		var guestInfo sql.NullString
		err = r.db.QueryRowContext(ctx,
			`SELECT quantity, visit_date, guest_info, unit_price FROM order_ticket_details WHERE order_id = ?`,
			order.ID).Scan(&d.Quantity, &visitDate, &guestInfo, &d.UnitPrice)
		d.VisitDate = visitDate.Format(model.DateLayout)
		d.GuestInfo = guestInfo.String
		order.Detail = d
	default:
		return fmt.Errorf("unknown order type %q", order.OrderType)
	}

	if err == sql.ErrNoRows {
		// 明细与订单同事务写入，缺失说明数据被外部改动
		util.Logger.Warn("订单缺少明细", zap.Int("order_id", order.ID))
		order.Detail = nil
		return nil
	}
	if err != nil {
		util.Logger.Error("查询订单明细失败", zap.Error(err), zap.Int("order_id", order.ID))
		return fmt.Errorf("failed to load order detail: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrdersByUser(ctx context.Context, userID int) ([]*model.Order, error) {
	util.Logger.Info("开始获取用户订单列表", zap.Int("user_id", userID))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		util.Logger.Error("查询订单失败", zap.Error(err), zap.Int("user_id", userID))
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	var orders []*model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			util.Logger.Error("扫描订单数据失败", zap.Error(err), zap.Int("user_id", userID))
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	// 先关闭游标再查明细，避免单连接时互相阻塞
	rows.Close()

	for _, order := range orders {
		if err := r.loadDetail(ctx, order); err != nil {
			return nil, err
		}
	}

	util.Logger.Info("成功获取用户订单列表",
		zap.Int("user_id", userID),
		zap.Int("order_count", len(orders)))
	return orders, nil
}

func (r *OrderRepository) GetStatusHistory(ctx context.Context, orderID int) ([]*model.OrderStatusHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, from_status, to_status, note, created_at
		 FROM order_status_history WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		util.Logger.Error("查询状态历史失败", zap.Error(err), zap.Int("order_id", orderID))
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var history []*model.OrderStatusHistory
	for rows.Next() {
		var h model.OrderStatusHistory
		var from, to string
		if err := rows.Scan(&h.ID, &h.OrderID, &from, &to, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		h.FromStatus = model.OrderStatus(from)
		h.ToStatus = model.OrderStatus(to)
		history = append(history, &h)
	}
	return history, rows.Err()
}

// ConfirmOrder 把订单从 pending 改为 confirmed，并在同一事务里把支付记录标记为 paid。
// 条件更新保证并发确认时只有一个请求生效，其余请求拿到订单当前状态。
func (r *OrderRepository) ConfirmOrder(ctx context.Context, c *model.Confirmation) (bool, model.OrderStatus, error) {
	util.Logger.Info("开始确认订单支付",
		zap.Int("order_id", c.OrderID),
		zap.String("transaction_id", c.TransactionID),
		zap.String("source", c.Source))

	paidAt := c.PaidAt
	if paidAt.IsZero() {
		paidAt = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return false, "", err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, payment_transaction_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.OrderConfirmed), c.TransactionID, paidAt, c.OrderID, string(model.OrderPending))
	if err != nil {
		util.Logger.Error("更新订单状态失败", zap.Error(err), zap.Int("order_id", c.OrderID))
		return false, "", fmt.Errorf("failed to confirm order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, "", fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, c.OrderID).Scan(&current)
		if err == sql.ErrNoRows {
			return false, "", nil
		}
		if err != nil {
			return false, "", fmt.Errorf("failed to read order status: %w", err)
		}
		util.Logger.Info("订单不在待支付状态，跳过确认",
			zap.Int("order_id", c.OrderID),
			zap.String("current_status", current))
		return false, model.OrderStatus(current), nil
	}

	var paymentID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM payments WHERE order_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		c.OrderID, string(model.PaymentPending)).Scan(&paymentID)
	switch {
	case err == sql.ErrNoRows:
		// 没有待支付记录时按订单金额补一条已支付记录
		_, err = tx.ExecContext(ctx,
			`INSERT INTO payments (order_id, status, amount, method, transaction_ref, paid_at, created_at, updated_at)
			 SELECT id, ?, total_amount, ?, ?, ?, ?, ? FROM orders WHERE id = ?`,
			string(model.PaymentPaid), c.Method, c.TransactionID, paidAt, paidAt, paidAt, c.OrderID)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE payments SET status = ?, method = ?, transaction_ref = ?, paid_at = ?, updated_at = ?
			 WHERE id = ?`,
			string(model.PaymentPaid), c.Method, c.TransactionID, paidAt, paidAt, paymentID)
	}
	if err != nil {
		util.Logger.Error("更新支付记录失败", zap.Error(err), zap.Int("order_id", c.OrderID))
		return false, "", fmt.Errorf("failed to mark payment paid: %w", err)
	}

	note := fmt.Sprintf("%s: %s", c.Source, c.TransactionID)
	if err := insertHistory(ctx, tx, c.OrderID, model.OrderPending, model.OrderConfirmed, note, paidAt); err != nil {
		return false, "", err
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return false, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	util.Logger.Info("订单支付确认成功",
		zap.Int("order_id", c.OrderID),
		zap.String("transaction_id", c.TransactionID))
	return true, model.OrderConfirmed, nil
}

// UpdateOrderStatus 条件更新订单状态。取消或退款时同步处理支付记录并释放座位。
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID int, from, to model.OrderStatus, note string) (bool, error) {
	util.Logger.Info("开始更新订单状态",
		zap.Int("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	now := r.now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now, orderID, string(from))
	if err != nil {
		util.Logger.Error("更新订单状态失败", zap.Error(err), zap.Int("order_id", orderID))
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if to == model.OrderCancelled || to == model.OrderRefunded {
		if err := releaseOrder(ctx, tx, orderID, to, now); err != nil {
			return false, err
		}
	}

	if err := insertHistory(ctx, tx, orderID, from, to, note, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	util.Logger.Info("订单状态更新成功",
		zap.Int("order_id", orderID),
		zap.String("status", string(to)))
	return true, nil
}

// releaseOrder 未支付的记录作废，已支付的记录在退款时标记为 refunded，同时释放座位
func releaseOrder(ctx context.Context, tx *sql.Tx, orderID int, to model.OrderStatus, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE order_id = ? AND status = ?`,
		string(model.PaymentFailed), now, orderID, string(model.PaymentPending))
	if err == nil && to == model.OrderRefunded {
		_, err = tx.ExecContext(ctx,
			`UPDATE payments SET status = ?, updated_at = ? WHERE order_id = ? AND status = ?`,
			string(model.PaymentRefunded), now, orderID, string(model.PaymentPaid))
	}
	if err != nil {
		util.Logger.Error("同步支付记录失败", zap.Error(err), zap.Int("order_id", orderID))
		return fmt.Errorf("failed to update payments: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicle_seat_holds WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	return nil
}

func (r *OrderRepository) CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.OrderStatus(status)] = n
	}
	return counts, rows.Err()
}
