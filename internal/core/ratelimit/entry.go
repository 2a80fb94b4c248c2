package ratelimit

import (
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

// entry 单个端点的统计与突发许可
//
// 计数器只通过 Store 与 CompareAndSwap 修改，重置与预留并发时
// 计数器要么在增量之前、要么在增量之后被清零，不会出现负值。
type entry struct {
	sent     atomic.Int64
	received atomic.Int64

	// UnixNano，0 表示从未发生
	lastReset    atomic.Int64
	lastActivity atomic.Int64

	// lastSeen 最近一次预留尝试（含被拒绝的），只用于空闲判断
	lastSeen atomic.Int64

	// inflight 进行中的预留数，-1 表示条目已被淘汰
	inflight atomic.Int32
	created  int64

	throttles [2]*semaphore.Weighted
}

func newEntry(upload, download pkgif.Quota, now time.Time) *entry {
	e := &entry{created: now.UnixNano()}
	e.throttles[pkgif.DirectionUpload] = semaphore.NewWeighted(int64(upload.Burst))
	e.throttles[pkgif.DirectionDownload] = semaphore.NewWeighted(int64(download.Burst))
	e.lastReset.Store(now.UnixNano())
	return e
}

// pin 登记一次进行中的预留，条目已被淘汰时返回 false
func (e *entry) pin() bool {
	for {
		n := e.inflight.Load()
		if n < 0 {
			return false
		}
		if e.inflight.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (e *entry) unpin() {
	e.inflight.Add(-1)
}

// retire 在没有进行中的预留时把条目标记为已淘汰
func (e *entry) retire() bool {
	return e.inflight.CompareAndSwap(0, -1)
}

func (e *entry) evicted() bool {
	return e.inflight.Load() < 0
}

// counter 返回方向对应的计数器
func (e *entry) counter(dir pkgif.Direction) *atomic.Int64 {
	if dir == pkgif.DirectionUpload {
		return &e.sent
	}
	return &e.received
}

// add 在不超过 limit 的前提下把 n 加到计数器上
func (e *entry) add(dir pkgif.Direction, n, limit int64) bool {
	c := e.counter(dir)
	for {
		cur := c.Load()
		if cur+n > limit {
			return false
		}
		if c.CompareAndSwap(cur, cur+n) {
			return true
		}
	}
}

// resetIfDue 若距上次重置已满 interval 则清零计数器
func (e *entry) resetIfDue(now time.Time, interval time.Duration) bool {
	last := e.lastReset.Load()
	if now.UnixNano()-last < int64(interval) {
		return false
	}
	if !e.lastReset.CompareAndSwap(last, now.UnixNano()) {
		return false
	}
	e.sent.Store(0)
	e.received.Store(0)
	return true
}

// idleSince 返回最近一次预留尝试的时间，从未尝试时使用创建时间
func (e *entry) idleSince() int64 {
	if a := e.lastSeen.Load(); a != 0 {
		return a
	}
	return e.created
}

func (e *entry) snapshot() pkgif.EndpointStats {
	return pkgif.EndpointStats{
		BytesSent:     e.sent.Load(),
		BytesReceived: e.received.Load(),
		LastReset:     unixTime(e.lastReset.Load()),
		LastActivity:  unixTime(e.lastActivity.Load()),
	}
}

func unixTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
