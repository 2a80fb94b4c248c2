package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/bufpool"
	"github.com/dep2p/go-framenet/internal/core/framing"
	"github.com/dep2p/go-framenet/internal/core/metrics"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

var logger = log.Logger("core/conn")

var _ pkgif.Connection = (*Conn)(nil)

// ============================================================================
//                              Events
// ============================================================================

// Events 连接的处理器集合
type Events struct {
	// OnFrame 处理一个入站帧，返回非 nil 的响应会被回写
	OnFrame func(c pkgif.Connection, payload []byte) ([]byte, error)

	// OnPostProcess 紧跟 OnFrame 调用
	OnPostProcess func(c pkgif.Connection, result pkgif.Result)

	// OnClosed 连接关闭时调用一次，reason 为 nil 表示正常关闭
	OnClosed func(c pkgif.Connection, reason error)
}

// Options 连接参数
type Options struct {
	// Pool 缓冲池，nil 时使用私有池
	Pool pkgif.BufferPool

	// Limiter 限速器，nil 表示不限速
	Limiter pkgif.RateLimiter

	// ReserveTimeout 申请限速许可的等待上限
	ReserveTimeout time.Duration

	// WriteTimeout 单次写出超时，0 表示不设置
	WriteTimeout time.Duration

	// InitialSize Reader 初始缓冲大小
	InitialSize int

	// MaxFrameSize 单帧负载上限
	MaxFrameSize int64

	Emitter *log.Emitter
	Metrics *metrics.Metrics
}

// ============================================================================
//                              Conn
// ============================================================================

// Conn 已接受的连接
type Conn struct {
	id       string
	raw      net.Conn
	endpoint string
	opened   time.Time

	reader *framing.Reader
	events atomic.Pointer[Events]
	opts   Options

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}

	// dispatchMu 保护 dispatching 与 pending：帧处理期间发生的关闭，
	// 其 OnClosed 推迟到该帧的 OnPostProcess 之后
	dispatchMu  sync.Mutex
	dispatching bool
	pending     *closeNote

	framesIn  atomic.Int64
	framesOut atomic.Int64
	bytesIn   atomic.Int64
	bytesOut  atomic.Int64
	dropped   atomic.Int64
}

// New 包装已接受的连接，调用 Start 后开始接收
func New(raw net.Conn, events Events, opts Options) *Conn {
	if opts.Pool == nil {
		opts.Pool = bufpool.New(config.DefaultMaxBufferTier, opts.Metrics)
	}

	c := &Conn{
		id:       uuid.NewString(),
		raw:      raw,
		endpoint: endpointOf(raw.RemoteAddr()),
		opened:   time.Now(),
		opts:     opts,
		done:     make(chan struct{}),
	}
	c.events.Store(&events)
	c.reader = framing.NewReader(raw, opts.Pool, readerHandler{c}, framing.Options{
		InitialSize:  opts.InitialSize,
		MaxFrameSize: opts.MaxFrameSize,
		Emitter:      opts.Emitter,
	})
	opts.Metrics.ConnOpened()
	return c
}

// Start 启动接收循环
//
// 接收循环以任何方式结束（包括 ctx 取消）都会关闭连接。
func (c *Conn) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if err := c.reader.Start(ctx); err != nil {
		return err
	}
	go func() {
		<-c.reader.Done()
		_ = c.closeWith(nil)
	}()
	return nil
}

// ID 返回连接唯一标识
func (c *Conn) ID() string { return c.id }

// RemoteEndpoint 返回远端端点
func (c *Conn) RemoteEndpoint() string { return c.endpoint }

// RemoteAddr 返回远端地址
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// LocalAddr 返回本地地址
func (c *Conn) LocalAddr() net.Addr { return c.raw.LocalAddr() }

// IsClosed 检查连接是否已关闭
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// Done 连接关闭且 OnClosed 返回后关闭
func (c *Conn) Done() <-chan struct{} { return c.done }

// Stat 返回连接统计
func (c *Conn) Stat() pkgif.ConnectionStat {
	return pkgif.ConnectionStat{
		Opened:        c.opened,
		FramesIn:      c.framesIn.Load(),
		FramesOut:     c.framesOut.Load(),
		BytesIn:       c.bytesIn.Load(),
		BytesOut:      c.bytesOut.Load(),
		FramesDropped: c.dropped.Load(),
	}
}

// ============================================================================
//                              写出
// ============================================================================

// Send 以帧格式发送负载，上行配额不足返回 ErrThrottled
func (c *Conn) Send(payload []byte) error {
	ok, err := c.TrySend(payload)
	if err != nil {
		return err
	}
	if !ok {
		return ErrThrottled
	}
	return nil
}

// TrySend 以帧格式发送负载，上行配额不足返回 (false, nil)
func (c *Conn) TrySend(payload []byte) (bool, error) {
	if c.closed.Load() {
		return false, ErrConnectionClosed
	}
	if uint64(len(payload)) > 1<<32-1 {
		return false, framing.ErrPayloadTooLarge
	}

	wire := framing.PrefixSize + len(payload)
	ok, err := c.admit(pkgif.DirectionUpload, wire)
	if err != nil || !ok {
		return false, err
	}

	buf := c.opts.Pool.Rent(wire)
	defer c.opts.Pool.Return(buf)
	framing.EncodeLength(buf, uint32(len(payload)))
	copy(buf[framing.PrefixSize:], payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return false, ErrConnectionClosed
	}
	if c.opts.WriteTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if _, err := c.raw.Write(buf[:wire]); err != nil {
		werr := fmt.Errorf("%w: %s: %v", ErrWriteFailed, c.endpoint, err)
		_ = c.closeWith(werr)
		return false, werr
	}

	c.framesOut.Add(1)
	c.bytesOut.Add(int64(wire))
	c.opts.Metrics.FrameSent(wire)
	return true, nil
}

// admit 预留方向配额，未配置限速器时总是放行
func (c *Conn) admit(dir pkgif.Direction, n int) (bool, error) {
	if c.opts.Limiter == nil {
		return true, nil
	}
	return c.opts.Limiter.TryReserve(c.endpoint, dir, int64(n), c.opts.ReserveTimeout)
}

// ============================================================================
//                              入站
// ============================================================================

// handleFrame 在接收 goroutine 上运行
//
// 从取得处理器集合到 OnPostProcess 返回之间，关闭通知被推迟，
// OnClosed 总是该连接上的最后一个回调。
func (c *Conn) handleFrame(payload []byte) {
	c.dispatchMu.Lock()
	ev := c.events.Load()
	if ev == nil {
		c.dispatchMu.Unlock()
		return
	}
	c.dispatching = true
	c.dispatchMu.Unlock()
	defer c.endDispatch()

	wire := framing.PrefixSize + len(payload)
	ok, err := c.admit(pkgif.DirectionDownload, wire)
	if err != nil || !ok {
		c.dropped.Add(1)
		c.opts.Metrics.FrameDropped()
		c.opts.Emitter.Warnf("dropped %d byte frame from %s: download quota exhausted", wire, c.endpoint)
		if err != nil {
			logger.Debug("下行配额检查失败", "endpoint", c.endpoint, "err", err)
		}
		return
	}
	c.framesIn.Add(1)
	c.bytesIn.Add(int64(wire))

	result := pkgif.Result{FrameSize: len(payload)}
	start := time.Now()
	var resp []byte
	if ev.OnFrame != nil {
		resp, result.Err = ev.OnFrame(c, payload)
	}
	result.Elapsed = time.Since(start)
	c.opts.Metrics.FrameReceived(wire, result.Elapsed)

	if resp != nil {
		if result.SendErr = c.Send(resp); result.SendErr == nil {
			result.ResponseSize = len(resp)
		}
	}

	if ev.OnPostProcess != nil {
		ev.OnPostProcess(c, result)
	}
	if result.Err != nil {
		_ = c.closeWith(result.Err)
	}
}

// endDispatch 结束帧处理，并投递处理期间被推迟的关闭通知
func (c *Conn) endDispatch() {
	c.dispatchMu.Lock()
	note := c.pending
	c.pending = nil
	c.dispatching = false
	c.dispatchMu.Unlock()

	if note != nil {
		c.notifyClosed(note)
	}
}

// readerHandler 将 Reader 事件转交给 Conn
type readerHandler struct {
	c *Conn
}

func (h readerHandler) OnFrame(payload []byte) {
	h.c.handleFrame(payload)
}

func (h readerHandler) OnClosed() {
	_ = h.c.closeWith(nil)
}

func (h readerHandler) OnError(err error) {
	if errors.Is(err, framing.ErrAlreadyReceiving) || errors.Is(err, framing.ErrReaderDisposed) {
		logger.Debug("忽略接收器启动错误", "conn", h.c.id, "err", err)
		return
	}
	h.c.opts.Metrics.ReceiveError()
	_ = h.c.closeWith(err)
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭连接，可重复、可并发调用
func (c *Conn) Close() error {
	return c.closeWith(nil)
}

// CloseWithError 以指定原因关闭连接，原因会传给 OnClosed
func (c *Conn) CloseWithError(reason error) error {
	return c.closeWith(reason)
}

func (c *Conn) closeWith(reason error) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.reader.Dispose()
	err := c.raw.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	c.opts.Metrics.ConnClosed()
	if reason != nil {
		c.opts.Emitter.Infof("connection %s to %s closed: %v", c.id, c.endpoint, reason)
	}

	c.dispatchMu.Lock()
	note := &closeNote{events: c.events.Swap(nil), reason: reason}
	if c.dispatching {
		c.pending = note
		c.dispatchMu.Unlock()
		return err
	}
	c.dispatchMu.Unlock()

	c.notifyClosed(note)
	return err
}

// closeNote 待投递的关闭通知
type closeNote struct {
	events *Events
	reason error
}

func (c *Conn) notifyClosed(note *closeNote) {
	if note.events != nil && note.events.OnClosed != nil {
		note.events.OnClosed(c, note.reason)
	}
	close(c.done)
}

// endpointOf 返回远端地址的 host 部分
func endpointOf(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil && host != "" {
		return host
	}
	if s == "" {
		return "unknown"
	}
	return s
}
