package framenet

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 统一配置，选项在其上修改
	config *config.Config

	// 外部日志端
	logSink log.Sink

	// 指标注册器
	registerer prometheus.Registerer

	// 绑定失败策略
	fatal FatalHandler

	// 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		config: config.NewConfig(),
	}
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置替换默认配置
//
// 应放在其他选项之前，之后的选项在此配置上继续修改。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidConfig)
		}
		c := *cfg
		o.config = &c
		return nil
	}
}

// ============================================================================
//                              监听选项
// ============================================================================

// WithListenAddr 设置监听地址
//
//	framenet.New(p, framenet.WithListenAddr("127.0.0.1:0"))
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.config.Listener.Addr = addr
		return nil
	}
}

// WithTLSConfig 使用 TLS 包装监听器
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) error {
		o.config.Listener.TLS = cfg
		return nil
	}
}

// WithMaxConnections 设置最大存活连接数（0 = 不限制）
func WithMaxConnections(n int) Option {
	return func(o *options) error {
		o.config.Listener.MaxConnections = n
		return nil
	}
}

// WithAcceptRate 设置每秒接受新连接的速率与突发量
func WithAcceptRate(perSecond float64, burst int) Option {
	return func(o *options) error {
		o.config.Listener.AcceptRate = perSecond
		o.config.Listener.AcceptBurst = burst
		return nil
	}
}

// WithWriteTimeout 设置单次写出超时
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.config.Listener.WriteTimeout = config.Duration(d)
		return nil
	}
}

// WithFatalHandler 设置绑定失败策略
//
// 默认记录日志并让 Start 返回 ErrBindFailed；传入 ExitOnFatal 则终止进程。
func WithFatalHandler(h FatalHandler) Option {
	return func(o *options) error {
		o.fatal = h
		return nil
	}
}

// ============================================================================
//                              帧与缓冲选项
// ============================================================================

// WithMaxFrameSize 设置单帧负载上限
func WithMaxFrameSize(n int64) Option {
	return func(o *options) error {
		o.config.Frame.MaxFrameSize = n
		return nil
	}
}

// WithInitialBufferSize 设置每个连接的初始接收缓冲大小
func WithInitialBufferSize(n int) Option {
	return func(o *options) error {
		o.config.BufferPool.InitialSize = n
		return nil
	}
}

// ============================================================================
//                              限速选项
// ============================================================================

// WithUploadQuota 设置上行（服务端发往端点）每周期字节数与突发许可
func WithUploadQuota(bytesPerInterval int64, burst int) Option {
	return func(o *options) error {
		o.config.RateLimit.Enabled = true
		o.config.RateLimit.UploadBytesPerSecond = bytesPerInterval
		o.config.RateLimit.UploadBurst = burst
		return nil
	}
}

// WithDownloadQuota 设置下行（从端点接收）每周期字节数与突发许可
func WithDownloadQuota(bytesPerInterval int64, burst int) Option {
	return func(o *options) error {
		o.config.RateLimit.Enabled = true
		o.config.RateLimit.DownloadBytesPerSecond = bytesPerInterval
		o.config.RateLimit.DownloadBurst = burst
		return nil
	}
}

// WithResetInterval 设置统计重置周期
func WithResetInterval(d time.Duration) Option {
	return func(o *options) error {
		o.config.RateLimit.ResetInterval = config.Duration(d)
		return nil
	}
}

// WithoutRateLimit 禁用限速
func WithoutRateLimit() Option {
	return func(o *options) error {
		o.config.RateLimit.Enabled = false
		return nil
	}
}

// ============================================================================
//                              可观测性选项
// ============================================================================

// WithLogSink 设置外部日志端
//
// 核心组件向 Sink 输出格式化字符串，Sink 的失败不会影响 I/O 路径。
func WithLogSink(sink log.Sink) Option {
	return func(o *options) error {
		o.logSink = sink
		return nil
	}
}

// WithRegisterer 设置 Prometheus 注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = true
		o.registerer = reg
		return nil
	}
}

// WithoutMetrics 禁用指标
func WithoutMetrics() Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = false
		return nil
	}
}

// WithFxEvents 将 Fx 事件日志输出到 zap 开发日志
func WithFxEvents() Option {
	return func(o *options) error {
		o.config.Log.FxEvents = true
		return nil
	}
}

// WithFxOptions 追加用户自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
