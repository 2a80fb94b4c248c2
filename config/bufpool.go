package config

import "math"

// BufferPool 分级边界
const (
	// MinBufferTier 最小分级（字节）
	MinBufferTier = 256

	// DefaultMaxBufferTier 默认最大分级（16 MiB）
	DefaultMaxBufferTier = 16 << 20
)

// BufferPoolConfig 缓冲池配置
type BufferPoolConfig struct {
	// InitialSize 每个 FrameReader 初始租用的缓冲大小
	// 默认值: 4096
	InitialSize int `json:"initial_size"`

	// MaxTier 可复用缓冲的最大分级，超过此大小的缓冲按需分配且不回收
	// 默认值: 16 MiB
	MaxTier int `json:"max_tier"`
}

// DefaultBufferPoolConfig 返回默认缓冲池配置
func DefaultBufferPoolConfig() BufferPoolConfig {
	return BufferPoolConfig{
		InitialSize: 4096,
		MaxTier:     DefaultMaxBufferTier,
	}
}

// Validate 验证缓冲池配置
func (c *BufferPoolConfig) Validate() error {
	if c.InitialSize < 0 {
		return invalid("buffer_pool.initial_size must be >= 0")
	}
	if c.MaxTier < MinBufferTier {
		return invalid("buffer_pool.max_tier must be >= %d", MinBufferTier)
	}
	if c.MaxTier&(c.MaxTier-1) != 0 {
		return invalid("buffer_pool.max_tier must be a power of two")
	}
	if c.InitialSize > c.MaxTier {
		return invalid("buffer_pool.initial_size must be <= max_tier")
	}
	return nil
}

// FrameConfig 帧配置
type FrameConfig struct {
	// MaxFrameSize 单帧负载的最大字节数（不含 4 字节长度前缀）
	// 默认值: 16 MiB
	MaxFrameSize int64 `json:"max_frame_size"`
}

// DefaultFrameConfig 返回默认帧配置
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		MaxFrameSize: 16 << 20,
	}
}

// Validate 验证帧配置
func (c *FrameConfig) Validate() error {
	if c.MaxFrameSize <= 0 || c.MaxFrameSize > math.MaxUint32 {
		return invalid("frame.max_frame_size must be in (0, %d]", uint64(math.MaxUint32))
	}
	return nil
}
