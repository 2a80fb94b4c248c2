package ratelimit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-framenet/internal/core/metrics"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
	"github.com/dep2p/go-framenet/pkg/lib/log"
)

var logger = log.Logger("core/ratelimit")

var _ pkgif.RateLimiter = (*Limiter)(nil)

// DefaultMaxEndpoints 默认最多跟踪的端点数
const DefaultMaxEndpoints = 65536

// Options 限速器构造参数
type Options struct {
	// Upload 上行配额（服务端发往端点）
	Upload pkgif.Quota

	// Download 下行配额（从端点接收）
	Download pkgif.Quota

	// ResetInterval 统计重置周期
	ResetInterval time.Duration

	// MaxEndpoints 端点索引容量，<= 0 使用 DefaultMaxEndpoints
	MaxEndpoints int

	// IdleEviction 空闲端点移除阈值，0 表示不按空闲移除，否则不得小于 ResetInterval
	IdleEviction time.Duration

	// Clock 时钟，nil 使用真实时钟
	Clock clock.Clock

	// Emitter 可选的外部日志端
	Emitter *log.Emitter

	// Metrics 可选的指标
	Metrics *metrics.Metrics
}

// Limiter 按端点的带宽准入控制器
type Limiter struct {
	quotas   [2]pkgif.Quota
	interval time.Duration
	idle     time.Duration
	clock    clock.Clock

	// mu 只串行化条目创建，读取路径不加锁
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]

	ctx    context.Context
	cancel context.CancelFunc
	ticker *clock.Ticker
	done   chan struct{}
	closed atomic.Bool

	emitter *log.Emitter
	metrics *metrics.Metrics
}

// New 创建限速器并启动周期重置
func New(opts Options) (*Limiter, error) {
	if opts.Upload.BytesPerInterval <= 0 || opts.Download.BytesPerInterval <= 0 {
		return nil, ErrInvalidQuota
	}
	if opts.Upload.Burst <= 0 || opts.Download.Burst <= 0 {
		return nil, ErrInvalidBurst
	}
	if opts.ResetInterval <= 0 {
		return nil, ErrInvalidInterval
	}
	if opts.IdleEviction < 0 || (opts.IdleEviction > 0 && opts.IdleEviction < opts.ResetInterval) {
		return nil, ErrInvalidIdleEviction
	}
	if opts.MaxEndpoints <= 0 {
		opts.MaxEndpoints = DefaultMaxEndpoints
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	l := &Limiter{
		interval: opts.ResetInterval,
		idle:     opts.IdleEviction,
		clock:    opts.Clock,
		done:     make(chan struct{}),
		emitter:  opts.Emitter,
		metrics:  opts.Metrics,
	}
	l.quotas[pkgif.DirectionUpload] = opts.Upload
	l.quotas[pkgif.DirectionDownload] = opts.Download

	cache, err := lru.New[string, *entry](opts.MaxEndpoints)
	if err != nil {
		return nil, err
	}
	l.entries = cache

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.ticker = l.clock.Ticker(l.interval)
	go l.resetLoop()

	return l, nil
}

// ============================================================================
//                              准入
// ============================================================================

// TryReserve 为端点的指定方向预留 n 字节
//
// 最多等待 timeout 获取突发许可；timeout <= 0 时只尝试一次。
// 许可超时或配额不足返回 (false, nil)，统计不变。
func (l *Limiter) TryReserve(endpoint string, dir pkgif.Direction, n int64, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		return l.reserve(nil, endpoint, dir, n)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.reserve(ctx, endpoint, dir, n)
}

// TryReserveContext 与 TryReserve 相同，等待上限由 ctx 决定
func (l *Limiter) TryReserveContext(ctx context.Context, endpoint string, dir pkgif.Direction, n int64) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.reserve(ctx, endpoint, dir, n)
}

// reserve ctx 为 nil 表示不等待
func (l *Limiter) reserve(ctx context.Context, endpoint string, dir pkgif.Direction, n int64) (bool, error) {
	if strings.TrimSpace(endpoint) == "" {
		return false, ErrInvalidEndpoint
	}
	if n <= 0 {
		return false, ErrInvalidByteCount
	}
	if dir != pkgif.DirectionUpload && dir != pkgif.DirectionDownload {
		return false, ErrInvalidDirection
	}
	if l.closed.Load() {
		return false, ErrLimiterDisposed
	}

	now := l.clock.Now().UnixNano()
	e := l.pin(endpoint)
	defer e.unpin()
	e.lastSeen.Store(now)
	th := e.throttles[dir]

	if ctx == nil {
		if !th.TryAcquire(1) {
			l.metrics.RateDecision(dir.String(), metrics.OutcomeTimeout)
			return false, nil
		}
	} else if err := l.acquire(ctx, e, dir); err != nil {
		if l.closed.Load() {
			return false, ErrLimiterDisposed
		}
		l.metrics.RateDecision(dir.String(), metrics.OutcomeTimeout)
		return false, nil
	}
	defer th.Release(1)

	if !e.add(dir, n, l.quotas[dir].BytesPerInterval) {
		l.metrics.RateDecision(dir.String(), metrics.OutcomeQuota)
		l.emitter.Debugf("endpoint %s over %s quota, %d bytes denied", endpoint, dir, n)
		return false, nil
	}
	e.lastActivity.Store(now)
	l.metrics.RateDecision(dir.String(), metrics.OutcomeAdmitted)
	return true, nil
}

// acquire 等待突发许可，限速器关闭时立即返回
func (l *Limiter) acquire(ctx context.Context, e *entry, dir pkgif.Direction) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(l.ctx, cancel)
	defer stop()

	return e.throttles[dir].Acquire(wctx, 1)
}

// pin 返回端点条目并标记一次进行中的预留，条目在 unpin 之前不会被移除
func (l *Limiter) pin(endpoint string) *entry {
	for {
		if e := l.entry(endpoint); e.pin() {
			return e
		}
	}
}

// entry 返回端点条目，不存在或已被淘汰时创建
func (l *Limiter) entry(endpoint string) *entry {
	if e, ok := l.entries.Get(endpoint); ok && !e.evicted() {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries.Get(endpoint); ok && !e.evicted() {
		return e
	}
	e := newEntry(l.quotas[pkgif.DirectionUpload], l.quotas[pkgif.DirectionDownload], l.clock.Now())
	if l.entries.Add(endpoint, e) {
		logger.Debug("端点索引已满，淘汰最久未使用的端点")
	}
	l.metrics.SetEndpoints(l.entries.Len())
	return e
}

// ============================================================================
//                              查询
// ============================================================================

// StatsFor 返回端点统计快照，未知端点返回零值
func (l *Limiter) StatsFor(endpoint string) (pkgif.EndpointStats, error) {
	if l.closed.Load() {
		return pkgif.EndpointStats{}, ErrLimiterDisposed
	}
	e, ok := l.entries.Peek(endpoint)
	if !ok {
		return pkgif.EndpointStats{}, nil
	}
	return e.snapshot(), nil
}

// Quota 返回方向配额，未知方向返回零值
func (l *Limiter) Quota(dir pkgif.Direction) pkgif.Quota {
	if dir != pkgif.DirectionUpload && dir != pkgif.DirectionDownload {
		return pkgif.Quota{}
	}
	return l.quotas[dir]
}

// Endpoints 返回当前跟踪的端点数
func (l *Limiter) Endpoints() int {
	return l.entries.Len()
}

// ============================================================================
//                              周期重置
// ============================================================================

func (l *Limiter) resetLoop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.ticker.C:
			l.sweep()
		}
	}
}

// sweep 清零到期端点的计数器并移除空闲端点
//
// 只有计数器本就到期清零的端点才可能被移除，移除不会让端点在周期内重新获得配额。
func (l *Limiter) sweep() {
	now := l.clock.Now()
	var reset, evicted int

	for _, key := range l.entries.Keys() {
		e, ok := l.entries.Peek(key)
		if !ok {
			continue
		}
		if l.evictIfIdle(key, e, now) {
			evicted++
			continue
		}
		if e.resetIfDue(now, l.interval) {
			reset++
		}
	}

	if evicted > 0 {
		l.emitter.Debugf("evicted %d idle endpoints", evicted)
	}
	l.metrics.SetEndpoints(l.entries.Len())
	logger.Debug("统计重置完成", "reset", reset, "evicted", evicted)
}

// evictIfIdle 移除空闲且已到重置时间的端点
func (l *Limiter) evictIfIdle(key string, e *entry, now time.Time) bool {
	if l.idle <= 0 {
		return false
	}
	ts := now.UnixNano()
	if ts-e.idleSince() < int64(l.idle) || ts-e.lastReset.Load() < int64(l.interval) {
		return false
	}
	if !e.retire() {
		return false
	}

	l.mu.Lock()
	if cur, ok := l.entries.Peek(key); ok && cur == e {
		l.entries.Remove(key)
	}
	l.mu.Unlock()
	return true
}

// ============================================================================
//                              生命周期
// ============================================================================

// Close 停止周期重置并唤醒所有许可等待者
func (l *Limiter) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.ticker.Stop()
	l.cancel()
	<-l.done
	return nil
}
