package idempotency

import (
	"context"
	"encoding/binary"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "processed_transactions"

// BoltGuard 单机部署时的本地实现，值为过期时间的 UnixNano
type BoltGuard struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltGuard 打开（或创建）本地数据库文件
func NewBoltGuard(path string) (*BoltGuard, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltGuard{db: db, now: time.Now}, nil
}

func (g *BoltGuard) Close() error {
	return g.db.Close()
}

func (g *BoltGuard) Seen(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var seen bool
	err := g.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if len(v) != 8 {
			return nil
		}
		expires := int64(binary.BigEndian.Uint64(v))
		seen = g.now().UnixNano() < expires
		return nil
	})
	return seen, err
}

func (g *BoltGuard) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := g.now()
	return g.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		// 未过期的记录保持不变
		if v := b.Get([]byte(key)); len(v) == 8 && now.UnixNano() < int64(binary.BigEndian.Uint64(v)) {
			return nil
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(now.Add(ttl).UnixNano()))
		return b.Put([]byte(key), buf)
	})
}

// Purge 删除已过期的记录，返回删除条数
func (g *BoltGuard) Purge() (int, error) {
	now := g.now().UnixNano()
	removed := 0
	err := g.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) != 8 || int64(binary.BigEndian.Uint64(v)) <= now {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}
