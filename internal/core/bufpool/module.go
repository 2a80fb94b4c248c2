package bufpool

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/metrics"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config  *config.Config   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Pool       *Pool
	BufferPool pkgif.BufferPool
}

// ProvidePool 提供缓冲池
func ProvidePool(input ModuleInput) ModuleOutput {
	cfg := config.DefaultBufferPoolConfig()
	if input.Config != nil {
		cfg = input.Config.BufferPool
	}
	p := New(cfg.MaxTier, input.Metrics)
	return ModuleOutput{Pool: p, BufferPool: p}
}

// Module 返回 bufpool 的 Fx 模块
func Module() fx.Option {
	return fx.Module("bufpool",
		fx.Provide(ProvidePool),
	)
}
