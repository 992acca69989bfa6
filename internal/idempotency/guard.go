// Package idempotency 记录已经处理过的外部交易号，用于丢弃重复投递的回调。
// 数据库里的状态比较仍是最终依据，这里只负责提前返回。
package idempotency

import (
	"context"
	"time"
)

// Guard 外部交易号去重
type Guard interface {
	// Seen 交易号是否已处理且未过期
	Seen(ctx context.Context, key string) (bool, error)
	// Mark 标记交易号已处理，ttl 后自动失效
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

// Key 按来源区分命名空间，避免银行流水号和钱包交易号碰撞
func Key(source, transactionID string) string {
	return "replay:" + source + ":" + transactionID
}
