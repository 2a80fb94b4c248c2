package interfaces

import "errors"

var (
	// ErrThrottled 上行配额不足，调用方应退避后重试
	ErrThrottled = errors.New("throttled: rate limit exceeded")

	// ErrConnectionClosed 连接已关闭
	ErrConnectionClosed = errors.New("connection closed")
)
