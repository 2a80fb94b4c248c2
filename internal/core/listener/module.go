package listener

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/metrics"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config   *config.Config `optional:"true"`
	Protocol pkgif.Protocol
	Pool     pkgif.BufferPool

	Limiter pkgif.RateLimiter `optional:"true"`
	Metrics *metrics.Metrics  `optional:"true"`
	Emitter *log.Emitter      `optional:"true"`
	OnFatal FatalHandler      `optional:"true"`
}

// ProvideListener 按配置创建监听器
func ProvideListener(input ModuleInput) (*Listener, error) {
	cfg := config.NewConfig()
	if input.Config != nil {
		cfg = input.Config
	}
	return New(input.Protocol, Options{
		Listener:       cfg.Listener,
		BufferPool:     cfg.BufferPool,
		Frame:          cfg.Frame,
		ReserveTimeout: cfg.RateLimit.ReserveTimeout,
		Pool:           input.Pool,
		Limiter:        input.Limiter,
		Metrics:        input.Metrics,
		Emitter:        input.Emitter.Named("core/listener"),
		OnFatal:        input.OnFatal,
	})
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 listener 的 Fx 模块
func Module() fx.Option {
	return fx.Module("listener",
		fx.Provide(ProvideListener),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 启动时开始监听，停止时关闭监听与所有连接
func registerLifecycle(lc fx.Lifecycle, l *Listener) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// OnStart 的 ctx 在启动完成后即被取消，不能用作监听生命周期
			return l.BeginListening(context.Background())
		},
		OnStop: func(_ context.Context) error {
			return multierr.Combine(l.EndListening(), l.CloseConnections())
		},
	})
}
