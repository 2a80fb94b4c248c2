package framenet

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/bufpool"
	"github.com/dep2p/go-framenet/internal/core/listener"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

var logger = log.Logger("framenet")

// Server 帧协议服务器
//
// 由 New 创建，Start 开始监听，Stop 停止监听并关闭所有连接。
// Stop 之后不能再次 Start。
type Server struct {
	// ────────────────────────────────────────────────────────────────────────
	// 配置和状态
	// ────────────────────────────────────────────────────────────────────────

	// config 服务器配置
	config *config.Config

	// app Fx 应用
	app *fx.App

	mu      sync.Mutex
	started bool
	closed  bool

	// ────────────────────────────────────────────────────────────────────────
	// 核心组件（由 Fx 注入）
	// ────────────────────────────────────────────────────────────────────────

	// listener 连接接受器
	listener *listener.Listener

	// limiter 限速器，限速未启用时为 nil
	limiter pkgif.RateLimiter

	// pool 缓冲池
	pool *bufpool.Pool
}

// New 创建服务器
//
// protocol 处理所有连接的帧。选项按顺序应用到默认配置上，
// 配置非法时返回 ErrInvalidConfig。
//
//	srv, err := framenet.New(p,
//	    framenet.WithListenAddr("0.0.0.0:7000"),
//	    framenet.WithUploadQuota(1<<20, 8),
//	)
func New(protocol Protocol, opts ...Option) (*Server, error) {
	if protocol == nil {
		return nil, ErrNilProtocol
	}

	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	s := &Server{config: o.config}

	app, err := buildFxApp(o, protocol, s)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	s.app = app
	return s, nil
}

// ============================================================================
//                              查询
// ============================================================================

// Addr 返回实际监听地址，未启动时返回 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount 返回存活连接数
func (s *Server) ConnectionCount() int {
	return s.listener.ConnectionCount()
}

// EndpointStats 返回端点在当前周期内的统计
func (s *Server) EndpointStats(endpoint string) (EndpointStats, error) {
	if s.limiter == nil {
		return EndpointStats{}, ErrRateLimitDisabled
	}
	return s.limiter.StatsFor(endpoint)
}

// OutstandingBuffers 返回未归还的缓冲租借数
func (s *Server) OutstandingBuffers() int64 {
	return s.pool.Outstanding()
}

// Config 返回配置副本
func (s *Server) Config() config.Config {
	return *s.config
}
