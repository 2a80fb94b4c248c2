package ratelimit

import (
	"context"

	"go.uber.org/fx"

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

	Config  *config.Config   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
	Emitter *log.Emitter     `optional:"true"`
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// RateLimiter 限速未启用时为 nil，连接层据此跳过准入检查
	RateLimiter pkgif.RateLimiter
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideServices 按配置创建限速器
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := config.DefaultRateLimitConfig()
	if input.Config != nil {
		cfg = input.Config.RateLimit
	}
	if !cfg.Enabled {
		logger.Info("限速未启用")
		return ModuleOutput{}, nil
	}

	l, err := New(OptionsFromConfig(cfg, input.Emitter, input.Metrics))
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{RateLimiter: l}, nil
}

// OptionsFromConfig 将配置转换为构造参数
func OptionsFromConfig(cfg config.RateLimitConfig, emitter *log.Emitter, m *metrics.Metrics) Options {
	return Options{
		Upload: pkgif.Quota{
			BytesPerInterval: cfg.UploadBytesPerSecond,
			Burst:            cfg.UploadBurst,
		},
		Download: pkgif.Quota{
			BytesPerInterval: cfg.DownloadBytesPerSecond,
			Burst:            cfg.DownloadBurst,
		},
		ResetInterval: cfg.ResetInterval.Duration(),
		MaxEndpoints:  cfg.MaxEndpoints,
		IdleEviction:  cfg.IdleEviction.Duration(),
		Emitter:       emitter.Named("core/ratelimit"),
		Metrics:       m,
	}
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 ratelimit 的 Fx 模块
func Module() fx.Option {
	return fx.Module("ratelimit",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In
	LC          fx.Lifecycle
	RateLimiter pkgif.RateLimiter `optional:"true"`
}

// registerLifecycle 在停止时释放限速器
func registerLifecycle(input lifecycleInput) {
	if input.RateLimiter == nil {
		return
	}
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.RateLimiter.Close()
		},
	})
}
