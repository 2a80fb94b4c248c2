package ratelimit

import "errors"

var (
	// ErrInvalidQuota 配额必须大于 0
	ErrInvalidQuota = errors.New("ratelimit: quota must be > 0")

	// ErrInvalidBurst 突发许可数必须大于 0
	ErrInvalidBurst = errors.New("ratelimit: burst must be > 0")

	// ErrInvalidInterval 重置周期必须大于 0
	ErrInvalidInterval = errors.New("ratelimit: reset interval must be > 0")

	// ErrInvalidIdleEviction 空闲移除阈值不能小于重置周期
	ErrInvalidIdleEviction = errors.New("ratelimit: idle eviction must be 0 or >= reset interval")

	// ErrInvalidEndpoint 端点为空
	ErrInvalidEndpoint = errors.New("ratelimit: endpoint is blank")

	// ErrInvalidByteCount 字节数必须大于 0
	ErrInvalidByteCount = errors.New("ratelimit: byte count must be > 0")

	// ErrInvalidDirection 未知方向
	ErrInvalidDirection = errors.New("ratelimit: unknown direction")

	// ErrLimiterDisposed 限速器已释放
	ErrLimiterDisposed = errors.New("ratelimit: limiter disposed")
)
