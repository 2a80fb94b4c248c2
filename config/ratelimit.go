package config

import "time"

// RateLimitConfig 按端点带宽配额配置
//
// 配额的含义是"每个重置周期 N 字节"：计数器在每个 ResetInterval
// 被整体清零，而非连续衰减。
type RateLimitConfig struct {
	// Enabled 是否启用限速
	// 默认值: true
	Enabled bool `json:"enabled"`

	// UploadBytesPerSecond 上行（服务端发往端点）每周期字节上限，必须 > 0
	// 默认值: 1 MiB
	UploadBytesPerSecond int64 `json:"upload_bytes_per_second"`

	// DownloadBytesPerSecond 下行（从端点接收）每周期字节上限，必须 > 0
	// 默认值: 1 MiB
	DownloadBytesPerSecond int64 `json:"download_bytes_per_second"`

	// UploadBurst 上行方向每端点并发许可数
	// 默认值: 4
	UploadBurst int `json:"upload_burst"`

	// DownloadBurst 下行方向每端点并发许可数
	// 默认值: 4
	DownloadBurst int `json:"download_burst"`

	// ResetInterval 统计重置周期
	// 默认值: 1s
	ResetInterval Duration `json:"reset_interval"`

	// ReserveTimeout I/O 路径申请许可时的等待上限
	// 默认值: 100ms
	ReserveTimeout Duration `json:"reserve_timeout"`

	// MaxEndpoints 同时跟踪的端点数上限，超出时淘汰最久未使用的端点
	// 默认值: 65536
	MaxEndpoints int `json:"max_endpoints"`

	// IdleEviction 端点空闲超过此时长后在重置扫描中被移除（0 = 不按空闲移除）
	// 非 0 时不得小于 ResetInterval
	// 默认值: 10m
	IdleEviction Duration `json:"idle_eviction"`
}

// DefaultRateLimitConfig 返回默认限速配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:                true,
		UploadBytesPerSecond:   1 << 20,
		DownloadBytesPerSecond: 1 << 20,
		UploadBurst:            4,
		DownloadBurst:          4,
		ResetInterval:          Duration(time.Second),
		ReserveTimeout:         Duration(100 * time.Millisecond),
		MaxEndpoints:           65536,
		IdleEviction:           Duration(10 * time.Minute),
	}
}

// Validate 验证限速配置
//
// 未启用限速时不做检查。
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.UploadBytesPerSecond <= 0 || c.DownloadBytesPerSecond <= 0 {
		return invalid("rate_limit quotas must be > 0")
	}
	if c.UploadBurst <= 0 || c.DownloadBurst <= 0 {
		return invalid("rate_limit bursts must be > 0")
	}
	if c.ResetInterval <= 0 {
		return invalid("rate_limit.reset_interval must be > 0")
	}
	if c.ReserveTimeout < 0 || c.IdleEviction < 0 {
		return invalid("rate_limit timeouts must be >= 0")
	}
	if c.IdleEviction > 0 && c.IdleEviction < c.ResetInterval {
		return invalid("rate_limit.idle_eviction must be 0 or >= reset_interval")
	}
	if c.MaxEndpoints <= 0 {
		return invalid("rate_limit.max_endpoints must be > 0")
	}
	return nil
}
