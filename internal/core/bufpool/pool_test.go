package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

func TestTierSize(t *testing.T) {
	cases := map[int]int{
		-1:   256,
		0:    256,
		1:    256,
		256:  256,
		257:  512,
		4096: 4096,
		4097: 8192,
	}
	for in, want := range cases {
		assert.Equal(t, want, tierSize(in), "tierSize(%d)", in)
	}
}

func TestPool_RentReturnsTier(t *testing.T) {
	p := New(1<<20, nil)

	buf := p.Rent(0)
	assert.Len(t, buf, MinTier)

	buf2 := p.Rent(1000)
	assert.Len(t, buf2, 1024)
	assert.Equal(t, int64(2), p.Outstanding())

	p.Return(buf)
	p.Return(buf2)
	assert.Equal(t, int64(0), p.Outstanding())
}

func TestPool_Reuse(t *testing.T) {
	p := New(1<<20, nil)

	buf := p.Rent(600)
	buf[0] = 7
	p.Return(buf)

	// sync.Pool 不保证命中，只验证计数自洽
	again := p.Rent(600)
	assert.Len(t, again, 1024)
	assert.Equal(t, int64(2), p.Allocations()+p.Reuses())
	p.Return(again)
}

func TestPool_OversizeNotPooled(t *testing.T) {
	p := New(1024, nil)
	assert.Equal(t, 1024, p.MaxTier())

	big := p.Rent(5000)
	assert.Len(t, big, 5000)
	assert.Equal(t, int64(1), p.Outstanding())

	p.Return(big)
	assert.Equal(t, int64(0), p.Outstanding())
	assert.Equal(t, int64(1), p.Allocations())
}

func TestPool_ReturnNil(t *testing.T) {
	p := New(1024, nil)
	p.Return(nil)
	assert.Equal(t, int64(0), p.Outstanding())
}

func TestPool_Concurrent(t *testing.T) {
	p := New(1<<16, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				buf := p.Rent((i*j)%5000 + 1)
				buf[0] = byte(j)
				p.Return(buf)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(0), p.Outstanding())
}

func TestModule(t *testing.T) {
	var bp pkgif.BufferPool

	app := fxtest.New(t,
		Module(),
		fx.Populate(&bp),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, bp)
	buf := bp.Rent(10)
	assert.Len(t, buf, MinTier)
	bp.Return(buf)
}
