package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"travel-booking-backend/internal/util"

	"go.uber.org/zap"
)

// schema 按依赖顺序排列的建表语句。users 由外部认证系统维护，这里只保证存在。
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tours (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(15,2) NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS accommodations (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(15,2) NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS vehicles (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(15,2) NOT NULL,
		seat_capacity INT NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(15,2) NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS orders (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_code VARCHAR(32) NOT NULL,
		order_code_compact VARCHAR(32) NOT NULL,
		user_id INT NOT NULL,
		order_type VARCHAR(20) NOT NULL,
		item_id INT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		total_amount DECIMAL(15,2) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		payment_transaction_id VARCHAR(128) NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uk_order_code (order_code),
		UNIQUE KEY uk_order_code_compact (order_code_compact),
		KEY idx_orders_user (user_id),
		KEY idx_orders_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_tour_details (
		order_id INT PRIMARY KEY,
		quantity INT NOT NULL,
		booking_date DATE NOT NULL,
		guest_info TEXT NULL,
		unit_price DECIMAL(15,2) NOT NULL,
		CONSTRAINT fk_tour_detail_order FOREIGN KEY (order_id) REFERENCES orders(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_accommodation_details (
		order_id INT PRIMARY KEY,
		room_id INT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		quantity INT NOT NULL,
		nights INT NOT NULL,
		unit_price DECIMAL(15,2) NOT NULL,
		CONSTRAINT fk_accommodation_detail_order FOREIGN KEY (order_id) REFERENCES orders(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_vehicle_details (
		order_id INT PRIMARY KEY,
		seat_position VARCHAR(32) NULL,
		seat_count INT NOT NULL,
		quantity INT NOT NULL,
		origin VARCHAR(255) NOT NULL,
		destination VARCHAR(255) NOT NULL,
		unit_price DECIMAL(15,2) NOT NULL,
		CONSTRAINT fk_vehicle_detail_order FOREIGN KEY (order_id) REFERENCES orders(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_ticket_details (
		order_id INT PRIMARY KEY,
		quantity INT NOT NULL,
		visit_date DATE NOT NULL,
		guest_info TEXT NULL,
		unit_price DECIMAL(15,2) NOT NULL,
		CONSTRAINT fk_ticket_detail_order FOREIGN KEY (order_id) REFERENCES orders(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS vehicle_seat_holds (
		vehicle_id INT NOT NULL,
		seat_position VARCHAR(32) NOT NULL,
		order_id INT NOT NULL,
		PRIMARY KEY (vehicle_id, seat_position),
		KEY idx_seat_hold_order (order_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_id INT NOT NULL,
		status VARCHAR(20) NOT NULL,
		amount DECIMAL(15,2) NOT NULL,
		method VARCHAR(32) NOT NULL,
		transaction_ref VARCHAR(128) NULL,
		paid_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_payments_order (order_id),
		CONSTRAINT fk_payment_order FOREIGN KEY (order_id) REFERENCES orders(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_status_history (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_id INT NOT NULL,
		from_status VARCHAR(20) NOT NULL DEFAULT '',
		to_status VARCHAR(20) NOT NULL,
		note VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		KEY idx_history_order (order_id),
		CONSTRAINT fk_history_order FOREIGN KEY (order_id) REFERENCES orders(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refund_requests (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_id INT NOT NULL,
		user_id INT NOT NULL,
		amount DECIMAL(15,2) NOT NULL,
		reason TEXT NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		KEY idx_refund_order (order_id),
		CONSTRAINT fk_refund_order FOREIGN KEY (order_id) REFERENCES orders(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate 创建缺失的表，已存在的表不做改动
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			util.Logger.Error("执行建表语句失败", zap.Int("index", i), zap.Error(err))
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	util.Logger.Info("数据库表结构已就绪", zap.Int("tables", len(schema)))
	return nil
}
