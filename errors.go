package framenet

import (
	"errors"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/listener"
	"github.com/dep2p/go-framenet/internal/core/ratelimit"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 服务器生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 服务器未启动
	ErrNotStarted = errors.New("server not started")

	// ErrAlreadyStarted 服务器已启动
	ErrAlreadyStarted = errors.New("server already started")

	// ErrServerClosed 服务器已停止，不能再次启动
	ErrServerClosed = errors.New("server closed")

	// ErrNilProtocol 未提供 Protocol
	ErrNilProtocol = errors.New("protocol is nil")

	// ErrRateLimitDisabled 限速未启用
	ErrRateLimitDisabled = errors.New("rate limit disabled")

	// ────────────────────────────────────────────────────────────────────────
	// 组件错误（重新导出）
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = config.ErrInvalidConfig

	// ErrBindFailed 绑定端口失败
	ErrBindFailed = listener.ErrBindFailed

	// ErrThrottled 上行配额不足
	ErrThrottled = pkgif.ErrThrottled

	// ErrConnectionClosed 连接已关闭
	ErrConnectionClosed = pkgif.ErrConnectionClosed

	// ErrLimiterDisposed 限速器已释放
	ErrLimiterDisposed = ratelimit.ErrLimiterDisposed
)
