// Package config 提供统一的配置管理
//
// 本包采用与组件一一对应的子配置：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，并提供 DefaultXxxConfig 与 Validate
//   - 支持 JSON 序列化（Duration 以 "30s" 形式表示）
//
// 各组件的构造函数只接收显式传入的子配置，不存在进程级全局配置。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Listener.Addr = "0.0.0.0:7000"
//	cfg.RateLimit.UploadBytesPerSecond = 100
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("invalid config")

// Config 是 framenet 的完整配置结构
//
// 配置按照功能模块组织：
//   - Listener: 监听与接入
//   - BufferPool: 缓冲池分级
//   - Frame: 帧长度限制
//   - RateLimit: 按端点的带宽配额
//   - Metrics: Prometheus 指标
//   - Log: 日志
type Config struct {
	// Listener 监听配置
	Listener ListenerConfig `json:"listener"`

	// BufferPool 缓冲池配置
	BufferPool BufferPoolConfig `json:"buffer_pool"`

	// Frame 帧配置
	Frame FrameConfig `json:"frame"`

	// RateLimit 限速配置
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否注册 Prometheus 指标
	// 默认值: true
	Enabled bool `json:"enabled"`

	// Namespace 指标命名空间
	// 默认值: framenet
	Namespace string `json:"namespace"`
}

// LogConfig 日志配置
type LogConfig struct {
	// FxEvents 是否输出 fx 依赖注入事件
	// 默认值: false
	FxEvents bool `json:"fx_events"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Listener:   DefaultListenerConfig(),
		BufferPool: DefaultBufferPoolConfig(),
		Frame:      DefaultFrameConfig(),
		RateLimit:  DefaultRateLimitConfig(),
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "framenet",
		},
	}
}

// Validate 验证配置的有效性
//
// 依次检查各子配置，返回的错误均包装 ErrInvalidConfig。
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := c.Listener.Validate(); err != nil {
		return err
	}
	if err := c.BufferPool.Validate(); err != nil {
		return err
	}
	if err := c.Frame.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("%w: metrics.namespace is empty", ErrInvalidConfig)
	}
	return nil
}

// FromJSON 从 JSON 数据解析配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToJSON 将配置序列化为缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// invalid 构造包装 ErrInvalidConfig 的错误
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
