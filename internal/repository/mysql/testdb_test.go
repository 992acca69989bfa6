package mysql

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/ordercode"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// sqliteSchema 与 schema 对应的 sqlite 版本，仅用于测试
var sqliteSchema = []string{
	`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT NOT NULL, email TEXT NOT NULL)`,
	`CREATE TABLE tours (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, price DECIMAL(15,2) NOT NULL, updated_at DATETIME NOT NULL)`,
	`CREATE TABLE accommodations (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, price DECIMAL(15,2) NOT NULL, updated_at DATETIME NOT NULL)`,
	`CREATE TABLE vehicles (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, price DECIMAL(15,2) NOT NULL, seat_capacity INTEGER NOT NULL DEFAULT 0, updated_at DATETIME NOT NULL)`,
	`CREATE TABLE tickets (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, price DECIMAL(15,2) NOT NULL, updated_at DATETIME NOT NULL)`,
	`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_code TEXT NOT NULL UNIQUE,
		order_code_compact TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL,
		order_type TEXT NOT NULL,
		item_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total_amount DECIMAL(15,2) NOT NULL,
		currency TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_transaction_id TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL)`,
	`CREATE TABLE order_tour_details (order_id INTEGER PRIMARY KEY, quantity INTEGER NOT NULL, booking_date DATE NOT NULL, guest_info TEXT NULL, unit_price DECIMAL(15,2) NOT NULL)`,
	`CREATE TABLE order_accommodation_details (order_id INTEGER PRIMARY KEY, room_id INTEGER NULL, start_date DATE NOT NULL, end_date DATE NOT NULL, quantity INTEGER NOT NULL, nights INTEGER NOT NULL, unit_price DECIMAL(15,2) NOT NULL)`,
	`CREATE TABLE order_vehicle_details (order_id INTEGER PRIMARY KEY, seat_position TEXT NULL, seat_count INTEGER NOT NULL, quantity INTEGER NOT NULL, origin TEXT NOT NULL, destination TEXT NOT NULL, unit_price DECIMAL(15,2) NOT NULL)`,
	`CREATE TABLE order_ticket_details (order_id INTEGER PRIMARY KEY, quantity INTEGER NOT NULL, visit_date DATE NOT NULL, guest_info TEXT NULL, unit_price DECIMAL(15,2) NOT NULL)`,
	`CREATE TABLE vehicle_seat_holds (vehicle_id INTEGER NOT NULL, seat_position TEXT NOT NULL, order_id INTEGER NOT NULL, PRIMARY KEY (vehicle_id, seat_position))`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		amount DECIMAL(15,2) NOT NULL,
		method TEXT NOT NULL,
		transaction_ref TEXT NULL,
		paid_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL)`,
	`CREATE TABLE order_status_history (id INTEGER PRIMARY KEY AUTOINCREMENT, order_id INTEGER NOT NULL, from_status TEXT NOT NULL DEFAULT '', to_status TEXT NOT NULL, note TEXT NOT NULL DEFAULT '', created_at DATETIME NOT NULL)`,
	`CREATE TABLE refund_requests (id INTEGER PRIMARY KEY AUTOINCREMENT, order_id INTEGER NOT NULL, user_id INTEGER NOT NULL, amount DECIMAL(15,2) NOT NULL, reason TEXT NOT NULL, status TEXT NOT NULL, created_at DATETIME NOT NULL)`,
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	// 单连接，事务之间串行执行
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range sqliteSchema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	now := time.Now()
	_, err = db.Exec(`INSERT INTO tours (id, name, price, updated_at) VALUES (1, 'Ha Long Bay', 1500000, ?)`, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO accommodations (id, name, price, updated_at) VALUES (1, 'Hoi An Homestay', 800000.5, ?)`, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO vehicles (id, name, price, seat_capacity, updated_at) VALUES (1, 'Sleeper bus', 350000, 40, ?)`, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tickets (id, name, price, updated_at) VALUES (1, 'Museum', 50000, ?)`, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, username, email) VALUES (7, 'linh', 'linh@example.com')`)
	require.NoError(t, err)
	return db
}

// newTourOrder 构造一个待插入的旅游团订单
func newTourOrder(code string, userID int, total int64) (*model.Order, *model.Payment) {
	order := &model.Order{
		OrderCode:        code,
		OrderCodeCompact: ordercode.Compact(code),
		UserID:           userID,
		OrderType:        model.ItemTour,
		ItemID:           1,
		TotalAmount:      decimal.NewFromInt(total),
		Currency:         "VND",
		PaymentMethod:    model.PaymentMethodBankTransfer,
		Detail: &model.TourDetail{
			Quantity:    2,
			BookingDate: "2026-11-01",
			GuestInfo:   "2 adults",
			UnitPrice:   decimal.NewFromInt(total / 2),
		},
	}
	payment := &model.Payment{Amount: order.TotalAmount, Method: order.PaymentMethod}
	return order, payment
}
