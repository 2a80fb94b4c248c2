package bufpool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/metrics"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

var _ pkgif.BufferPool = (*Pool)(nil)

// MinTier 最小分级
const MinTier = config.MinBufferTier

// Pool 分级缓冲池
type Pool struct {
	maxTier int
	tiers   []sync.Pool // tiers[i] 保存 MinTier<<i 字节的缓冲

	outstanding atomic.Int64
	allocations atomic.Int64
	reuses      atomic.Int64

	metrics *metrics.Metrics
}

// New 创建缓冲池
//
// maxTier 会被向上取整到 2 的幂，且不小于 MinTier。
func New(maxTier int, m *metrics.Metrics) *Pool {
	maxTier = tierSize(maxTier)
	n := bits.TrailingZeros(uint(maxTier)) - bits.TrailingZeros(uint(MinTier)) + 1
	return &Pool{
		maxTier: maxTier,
		tiers:   make([]sync.Pool, n),
		metrics: m,
	}
}

// Rent 租用不小于 minSize 的缓冲，返回切片长度为分级大小
func (p *Pool) Rent(minSize int) []byte {
	size := tierSize(minSize)
	p.outstanding.Add(1)

	if size > p.maxTier {
		p.allocations.Add(1)
		p.metrics.BufferRented(false)
		return make([]byte, minSize)
	}

	if v := p.tiers[tierIndex(size)].Get(); v != nil {
		p.reuses.Add(1)
		p.metrics.BufferRented(true)
		return (*v.(*[]byte))[:size]
	}

	p.allocations.Add(1)
	p.metrics.BufferRented(false)
	return make([]byte, size)
}

// Return 归还缓冲
//
// 容量不是分级大小的缓冲（包括超大缓冲）被计数后丢弃。
func (p *Pool) Return(buf []byte) {
	if buf == nil {
		return
	}
	p.outstanding.Add(-1)
	p.metrics.BufferReturned()

	c := cap(buf)
	if c < MinTier || c > p.maxTier || c&(c-1) != 0 {
		return
	}
	buf = buf[:c]
	p.tiers[tierIndex(c)].Put(&buf)
}

// Outstanding 返回未归还的租借数
func (p *Pool) Outstanding() int64 {
	return p.outstanding.Load()
}

// Allocations 返回新分配的缓冲数
func (p *Pool) Allocations() int64 {
	return p.allocations.Load()
}

// Reuses 返回从池中复用的缓冲数
func (p *Pool) Reuses() int64 {
	return p.reuses.Load()
}

// MaxTier 返回最大分级
func (p *Pool) MaxTier() int {
	return p.maxTier
}

// tierSize 返回容纳 n 字节的分级大小
func tierSize(n int) int {
	if n <= MinTier {
		return MinTier
	}
	return 1 << bits.Len(uint(n-1))
}

func tierIndex(size int) int {
	return bits.TrailingZeros(uint(size)) - bits.TrailingZeros(uint(MinTier))
}
