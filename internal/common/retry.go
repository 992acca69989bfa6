package common

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"time"
)

// retryableError 显式标记可重试的错误，例如网关返回 5xx
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable 把错误标记为可重试
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsTemporary 判断是否为临时性错误
func IsTemporary(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if temp, ok := err.(interface{ Temporary() bool }); ok {
		return temp.Temporary()
	}
	return false
}

// IsRetryable 判断是否可重试
func IsRetryable(err error) bool {
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	return IsTemporary(err) || errors.Is(err, sql.ErrConnDone)
}

// WithRetry 通用重试机制，第 i 次失败后等待 backoff*(i+1)，ctx 结束时立即返回
func WithRetry(ctx context.Context, maxRetries int, backoff time.Duration, operation func(ctx context.Context) error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = operation(ctx); err == nil {
			return nil
		}
		if !IsRetryable(err) || i == maxRetries-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return err
}
