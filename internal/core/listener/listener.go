package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	tec "github.com/jbenet/go-temp-err-catcher"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/conn"
	"github.com/dep2p/go-framenet/internal/core/metrics"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

var logger = log.Logger("core/listener")

// Options 监听器参数
type Options struct {
	Listener   config.ListenerConfig
	BufferPool config.BufferPoolConfig
	Frame      config.FrameConfig

	// ReserveTimeout 连接申请限速许可的等待上限
	ReserveTimeout config.Duration

	Pool    pkgif.BufferPool
	Limiter pkgif.RateLimiter
	Metrics *metrics.Metrics
	Emitter *log.Emitter

	// OnFatal 绑定失败策略，nil 使用 DefaultFatalHandler
	OnFatal FatalHandler
}

// Listener 单端口连接接受器
type Listener struct {
	protocol pkgif.Protocol
	opts     Options

	ln         net.Listener
	accept     *rate.Limiter
	started    atomic.Bool
	closed     atomic.Bool
	acceptDone chan struct{}

	loopCtx    context.Context
	loopCancel context.CancelFunc

	// mu 保护 ln 与 conns
	mu    sync.Mutex
	conns map[string]*conn.Conn

	// control 绑定前对套接字的回调，nil 表示不需要
	control func(network, address string, c syscall.RawConn) error
}

// New 创建监听器，protocol 不能为 nil
func New(protocol pkgif.Protocol, opts Options) (*Listener, error) {
	if protocol == nil {
		return nil, fmt.Errorf("%w: nil protocol", ErrInvalidArgument)
	}
	if opts.Pool == nil {
		return nil, fmt.Errorf("%w: nil buffer pool", ErrInvalidArgument)
	}
	if err := opts.Listener.Validate(); err != nil {
		return nil, err
	}
	if opts.OnFatal == nil {
		opts.OnFatal = DefaultFatalHandler
	}

	l := &Listener{
		protocol:   protocol,
		opts:       opts,
		acceptDone: make(chan struct{}),
		conns:      make(map[string]*conn.Conn),
	}
	if opts.Listener.AcceptRate > 0 {
		l.accept = rate.NewLimiter(rate.Limit(opts.Listener.AcceptRate), opts.Listener.AcceptBurst)
	}
	l.loopCtx, l.loopCancel = context.WithCancel(context.Background())
	return l, nil
}

// ============================================================================
//                              监听
// ============================================================================

// BeginListening 绑定端口并启动接受循环
//
// 绑定失败交给 FatalHandler。ctx 取消等同于 EndListening。
func (l *Listener) BeginListening(ctx context.Context) error {
	if l.closed.Load() {
		return ErrListenerClosed
	}
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}

	cfg := l.opts.Listener
	lc := net.ListenConfig{KeepAlive: cfg.KeepAlivePeriod.Duration(), Control: l.control}
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		close(l.acceptDone)
		return l.opts.OnFatal(fmt.Errorf("%w: %s: %v", ErrBindFailed, cfg.Addr, err))
	}
	if cfg.TLS != nil {
		ln = tls.NewListener(ln, cfg.TLS)
	}

	// 绑定期间 EndListening 已执行，此时由这里负责关闭
	l.mu.Lock()
	if l.closed.Load() {
		l.mu.Unlock()
		_ = ln.Close()
		close(l.acceptDone)
		return ErrListenerClosed
	}
	l.ln = ln
	l.mu.Unlock()

	logger.Info("开始监听", "addr", ln.Addr().String(), "tls", cfg.TLS != nil)
	l.opts.Emitter.Infof("listening on %s", ln.Addr())

	context.AfterFunc(ctx, func() { _ = l.EndListening() })
	go l.acceptLoop()
	return nil
}

func (l *Listener) acceptLoop() {
	defer close(l.acceptDone)

	var catcher tec.TempErrCatcher
	for {
		if l.accept != nil {
			if err := l.accept.Wait(l.loopCtx); err != nil {
				return
			}
		}

		raw, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() {
				return
			}
			if catcher.IsTemporary(err) {
				logger.Warn("临时接受错误", "err", err)
				continue
			}
			logger.Error("接受连接失败，停止监听", "err", err)
			l.opts.Emitter.Errorf("accept on %s failed: %v", l.ln.Addr(), err)
			return
		}
		catcher.Reset()

		if limit := l.opts.Listener.MaxConnections; limit > 0 && l.ConnectionCount() >= limit {
			logger.Warn("连接数已达上限，拒绝连接", "remote", raw.RemoteAddr().String(), "max", limit)
			l.opts.Metrics.ConnRejected()
			_ = raw.Close()
			continue
		}

		l.handle(raw)
	}
}

// handle 包装连接并在独立 goroutine 上运行
func (l *Listener) handle(raw net.Conn) {
	if tc, ok := raw.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(l.opts.Listener.NoDelay)
	}

	c := conn.New(raw, l.events(), conn.Options{
		Pool:           l.opts.Pool,
		Limiter:        l.opts.Limiter,
		ReserveTimeout: l.opts.ReserveTimeout.Duration(),
		WriteTimeout:   l.opts.Listener.WriteTimeout.Duration(),
		InitialSize:    l.opts.BufferPool.InitialSize,
		MaxFrameSize:   l.opts.Frame.MaxFrameSize,
		Emitter:        l.opts.Emitter,
		Metrics:        l.opts.Metrics,
	})

	l.mu.Lock()
	l.conns[c.ID()] = c
	l.mu.Unlock()

	go l.serve(c)
}

func (l *Listener) serve(c *conn.Conn) {
	logger.Debug("接受连接", "conn", c.ID(), "remote", c.RemoteAddr().String())

	if err := l.protocol.OnAccept(c); err != nil {
		l.opts.Emitter.Warnf("protocol rejected %s: %v", c.RemoteEndpoint(), err)
		_ = c.CloseWithError(err)
		return
	}
	// 连接的生命周期独立于接受循环，只由 CloseConnections 或自身关闭结束
	if err := c.Start(context.Background()); err != nil && !errors.Is(err, conn.ErrConnectionClosed) {
		logger.Warn("启动接收失败", "conn", c.ID(), "err", err)
		_ = c.CloseWithError(err)
	}
}

// events 把连接事件接到 Protocol
func (l *Listener) events() conn.Events {
	notifier, _ := l.protocol.(pkgif.CloseNotifier)
	return conn.Events{
		OnFrame:       l.protocol.OnMessage,
		OnPostProcess: l.protocol.OnPostProcess,
		OnClosed: func(c pkgif.Connection, reason error) {
			l.mu.Lock()
			delete(l.conns, c.ID())
			l.mu.Unlock()
			if notifier != nil {
				notifier.OnClose(c, reason)
			}
		},
	}
}

// ============================================================================
//                              停止
// ============================================================================

// EndListening 停止接受新连接，已接受的连接不受影响
func (l *Listener) EndListening() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.loopCancel()

	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()

	var err error
	if ln != nil {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	if l.started.Load() {
		<-l.acceptDone
	}
	logger.Info("停止监听", "addr", l.opts.Listener.Addr)
	return err
}

// CloseConnections 关闭所有存活连接
func (l *Listener) CloseConnections() error {
	l.mu.Lock()
	conns := make([]*conn.Conn, 0, len(l.conns))
	for _, c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	var err error
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// ============================================================================
//                              查询
// ============================================================================

// ConnectionCount 返回存活连接数
func (l *Listener) ConnectionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// Addr 返回实际监听地址，未监听时返回 nil
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}
