package bytebuff

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_GetPut(t *testing.T) {
	p := NewPool()

	t.Run("capacity honours hint", func(t *testing.T) {
		buf := p.Get(100)
		assert.GreaterOrEqual(t, buf.Cap(), 100)
		p.Put(buf)
	})

	t.Run("nil put is safe", func(t *testing.T) {
		p.Put(nil)
	})

	t.Run("oversized buffer dropped", func(t *testing.T) {
		pp := NewPool()
		buf := pp.Get(maxSize + 1)
		pp.Put(buf)
		_, puts, misses := pp.Stats()
		assert.Zero(t, puts)
		assert.Equal(t, uint64(1), misses)
	})

	t.Run("returned buffer is reset", func(t *testing.T) {
		buf := p.Get(64)
		buf.WriteString("dirty")
		p.Put(buf)
		assert.Zero(t, p.Get(64).Len())
	})
}

func TestSelectPool(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{-1, 0}, {0, 0}, {64, 0}, {65, 1}, {4096, 2}, {1 << 20, 5}, {1 << 21, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, selectPool(tt.size), "size %d", tt.size)
	}
}

func TestBodyPoolConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := GetBody()
			_, _ = b.WriteString(`{"type":"item_add"}`)
			assert.Equal(t, 19, b.Len())
			b.Reset()
			PutBody(b)
		}()
	}
	wg.Wait()
	PutBody(nil)
}
