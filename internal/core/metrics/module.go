package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-framenet/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Config     *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回 metrics 的 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewFromParams),
	)
}

// NewFromParams 从参数创建 Metrics
//
// 指标被禁用时返回 nil，各组件的调用均为空操作。
func NewFromParams(p Params) (*Metrics, error) {
	cfg := config.NewConfig()
	if p.Config != nil {
		cfg = p.Config
	}
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	return New(cfg.Metrics.Namespace, p.Registerer)
}
