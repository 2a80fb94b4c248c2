package config

import (
	"crypto/tls"
	"net"
	"time"
)

// ListenerConfig 监听配置
type ListenerConfig struct {
	// Addr 监听地址（host:port）
	// 默认值: 0.0.0.0:7000
	Addr string `json:"addr"`

	// TLS 可选的安全传输配置，非 nil 时监听器被 tls.NewListener 包装
	TLS *tls.Config `json:"-"`

	// MaxConnections 同时存活的最大连接数（0 = 不限制）
	MaxConnections int `json:"max_connections"`

	// AcceptRate 每秒接受的新连接数（0 = 不限制）
	AcceptRate float64 `json:"accept_rate"`

	// AcceptBurst 接受速率的突发容量
	// 默认值: 64
	AcceptBurst int `json:"accept_burst"`

	// WriteTimeout 单次写出超时（0 = 不设置写超时）
	// 默认值: 10s
	WriteTimeout Duration `json:"write_timeout"`

	// KeepAlivePeriod TCP KeepAlive 周期（0 = 系统默认）
	// 默认值: 30s
	KeepAlivePeriod Duration `json:"keep_alive_period"`

	// NoDelay 是否禁用 Nagle 算法
	// 默认值: true
	NoDelay bool `json:"no_delay"`
}

// DefaultListenerConfig 返回默认监听配置
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Addr:            "0.0.0.0:7000",
		AcceptBurst:     64,
		WriteTimeout:    Duration(10 * time.Second),
		KeepAlivePeriod: Duration(30 * time.Second),
		NoDelay:         true,
	}
}

// Validate 验证监听配置
func (c *ListenerConfig) Validate() error {
	if c.Addr == "" {
		return invalid("listener.addr is empty")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return invalid("listener.addr %q: %v", c.Addr, err)
	}
	if c.MaxConnections < 0 {
		return invalid("listener.max_connections must be >= 0")
	}
	if c.AcceptRate < 0 {
		return invalid("listener.accept_rate must be >= 0")
	}
	if c.AcceptRate > 0 && c.AcceptBurst <= 0 {
		return invalid("listener.accept_burst must be > 0 when accept_rate is set")
	}
	if c.WriteTimeout < 0 || c.KeepAlivePeriod < 0 {
		return invalid("listener timeouts must be >= 0")
	}
	return nil
}
