package framing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

var logger = log.Logger("core/framing")

// ============================================================================
//                              Handler
// ============================================================================

// Handler 接收帧与终止事件
//
// 所有回调都在接收 goroutine 上调用，同一 Reader 的回调不会并发。
type Handler interface {
	// OnFrame 交付一个完整帧的负载副本
	OnFrame(payload []byte)

	// OnClosed 对端有序关闭（EOF 或零长度读）
	OnClosed()

	// OnError 接收故障或启动失败
	OnError(err error)
}

// HandlerFuncs 函数形式的 Handler，未设置的回调被忽略
type HandlerFuncs struct {
	Frame  func(payload []byte)
	Closed func()
	Error  func(err error)
}

// OnFrame 实现 Handler
func (h HandlerFuncs) OnFrame(payload []byte) {
	if h.Frame != nil {
		h.Frame(payload)
	}
}

// OnClosed 实现 Handler
func (h HandlerFuncs) OnClosed() {
	if h.Closed != nil {
		h.Closed()
	}
}

// OnError 实现 Handler
func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

// ============================================================================
//                              状态
// ============================================================================

// State Reader 状态
type State int32

const (
	// StateIdle 未启动，或两次 Read 之间
	StateIdle State = iota
	// StateReceiving 有一个在途 Read
	StateReceiving
	// StateClosed 对端关闭、取消或释放（终态）
	StateClosed
	// StateFaulted I/O 或解码故障（终态）
	StateFaulted
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	return s == StateClosed || s == StateFaulted
}

// ============================================================================
//                              Reader
// ============================================================================

// Options Reader 参数
type Options struct {
	// InitialSize 初始缓冲大小
	InitialSize int

	// MaxFrameSize 单帧负载上限，<= 0 表示 math.MaxUint32
	MaxFrameSize int64

	// Emitter 可选的外部日志端
	Emitter *log.Emitter
}

// Reader 单连接的帧接收器
type Reader struct {
	conn    net.Conn
	pool    pkgif.BufferPool
	handler Handler
	opts    Options

	state    atomic.Int32
	started  atomic.Bool
	disposed atomic.Bool

	stopCtx context.Context
	stop    context.CancelFunc
	done    chan struct{}
}

// NewReader 创建 Reader
func NewReader(conn net.Conn, pool pkgif.BufferPool, handler Handler, opts Options) *Reader {
	if handler == nil {
		handler = HandlerFuncs{}
	}
	if opts.MaxFrameSize <= 0 || opts.MaxFrameSize > 1<<32-1 {
		opts.MaxFrameSize = 1<<32 - 1
	}
	r := &Reader{
		conn:    conn,
		pool:    pool,
		handler: handler,
		opts:    opts,
		done:    make(chan struct{}),
	}
	r.stopCtx, r.stop = context.WithCancel(context.Background())
	return r
}

// Start 启动接收循环
//
// 已启动或已释放时返回错误，同时通过 Handler.OnError 报告，不做其他事。
func (r *Reader) Start(ctx context.Context) error {
	if r.disposed.Load() || State(r.state.Load()).terminal() {
		r.handler.OnError(ErrReaderDisposed)
		return ErrReaderDisposed
	}
	if !r.started.CompareAndSwap(false, true) {
		r.handler.OnError(ErrAlreadyReceiving)
		return ErrAlreadyReceiving
	}

	loopCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		stop := context.AfterFunc(r.stopCtx, cancel)
		defer stop()
		wake := context.AfterFunc(loopCtx, r.wake)
		defer wake()
		r.loop(loopCtx)
	}()
	return nil
}

// Cancel 协作式取消：在途 Read 被唤醒，之后不再触发任何回调
func (r *Reader) Cancel() {
	r.stop()
	r.wake()
}

// wake 以过去的读超时唤醒阻塞的 Read
func (r *Reader) wake() {
	_ = r.conn.SetReadDeadline(time.Unix(1, 0))
}

// Dispose 释放 Reader，可重复、可并发调用，不阻塞
//
// 缓冲由接收循环在退出时归还；未启动的 Reader 没有租用缓冲。
func (r *Reader) Dispose() {
	if !r.disposed.CompareAndSwap(false, true) {
		return
	}
	r.Cancel()
	if cr, ok := r.conn.(interface{ CloseRead() error }); ok {
		_ = cr.CloseRead()
	} else {
		_ = r.conn.Close()
	}
	if r.started.CompareAndSwap(false, true) {
		// 从未启动
		r.setState(StateClosed)
		close(r.done)
	}
}

// State 返回当前状态
func (r *Reader) State() State {
	return State(r.state.Load())
}

// Done 接收循环退出（或未启动即释放）时关闭
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// setState 终态之后不再变化
func (r *Reader) setState(s State) {
	for {
		cur := r.state.Load()
		if State(cur).terminal() {
			return
		}
		if r.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

func (r *Reader) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || r.disposed.Load()
}

// ============================================================================
//                              接收循环
// ============================================================================

func (r *Reader) loop(ctx context.Context) {
	defer close(r.done)

	buf := r.pool.Rent(r.opts.InitialSize)
	initial := len(buf)
	defer func() { r.pool.Return(buf) }()

	filled := 0
	for {
		if r.stopped(ctx) {
			r.setState(StateClosed)
			return
		}

		r.setState(StateReceiving)
		n, err := r.conn.Read(buf[filled:])

		if n > 0 && !r.stopped(ctx) {
			filled += n
			var derr error
			buf, filled, derr = r.drain(ctx, buf, filled, initial)
			if derr != nil {
				r.fault("decode", derr)
				return
			}
			r.setState(StateIdle)
		}

		switch {
		case r.stopped(ctx):
			r.setState(StateClosed)
			return
		case err == nil && n > 0:
			continue
		case err == nil, errors.Is(err, io.EOF):
			r.setState(StateClosed)
			r.opts.Emitter.Debugf("peer %s closed", r.remote())
			r.handler.OnClosed()
			return
		default:
			r.fault("read", err)
			return
		}
	}
}

// drain 交付缓冲中所有完整帧，压缩剩余字节，并按需扩容或收缩缓冲
func (r *Reader) drain(ctx context.Context, buf []byte, filled, initial int) ([]byte, int, error) {
	off, need := 0, 0
	for filled-off >= PrefixSize {
		length := int64(DecodeLength(buf[off:]))
		if length > r.opts.MaxFrameSize {
			return buf, filled, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, r.opts.MaxFrameSize)
		}
		total := PrefixSize + int(length)
		if filled-off < total {
			need = total
			break
		}
		if r.stopped(ctx) {
			return buf, filled, nil
		}
		r.handler.OnFrame(bytes.Clone(buf[off+PrefixSize : off+total]))
		off += total
	}

	if off > 0 {
		filled = copy(buf, buf[off:filled])
	}

	switch {
	case need > len(buf):
		buf = r.resize(buf, filled, need)
		logger.Debug("接收缓冲扩容", "remote", r.remote(), "size", len(buf))
	case need <= initial && filled < initial && len(buf) > initial:
		buf = r.resize(buf, filled, initial)
	}
	return buf, filled, nil
}

// resize 租用新缓冲、复制已填充字节并归还旧缓冲
func (r *Reader) resize(buf []byte, filled, size int) []byte {
	nb := r.pool.Rent(size)
	copy(nb, buf[:filled])
	r.pool.Return(buf)
	return nb
}

func (r *Reader) fault(op string, err error) {
	r.setState(StateFaulted)
	rerr := &ReceiveError{Remote: r.remote(), Op: op, Err: err}
	r.opts.Emitter.Warnf("%v", rerr)
	r.handler.OnError(rerr)
}

func (r *Reader) remote() string {
	if a := r.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}
