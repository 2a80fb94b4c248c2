package framenet

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-framenet/internal/core/bufpool"
	"github.com/dep2p/go-framenet/internal/core/listener"
	"github.com/dep2p/go-framenet/internal/core/metrics"
	"github.com/dep2p/go-framenet/internal/core/ratelimit"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

var fxLogger = log.Logger("framenet/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置与外部协作者（Protocol、日志端、注册器、致命故障策略）
//  2. Metrics → BufferPool → RateLimiter
//  3. Listener（依赖以上全部）
//  4. 用户扩展
func buildFxApp(o *options, protocol pkgif.Protocol, s *Server) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),
		fx.Provide(func() pkgif.Protocol { return protocol }),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 可选协作者
	// ════════════════════════════════════════════════════════════════════════
	if o.logSink != nil {
		modules = append(modules, fx.Supply(log.NewEmitter("framenet", o.logSink)))
	}
	if o.registerer != nil {
		reg := o.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	if o.fatal != nil {
		fatal := o.fatal
		modules = append(modules, fx.Provide(func() FatalHandler { return fatal }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		metrics.Module(),
		bufpool.Module(),
		ratelimit.Module(),
		listener.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. Server 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Populate(&s.listener, &s.limiter, &s.pool))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	fxEvents := o.config.Log.FxEvents
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			if fxEvents {
				if l, err := zap.NewDevelopment(); err == nil {
					return &fxevent.ZapLogger{Logger: l}
				}
			}
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		fxLogger.Error("构建 Fx 应用失败", "error", err)
		return nil, err
	}
	return app, nil
}
