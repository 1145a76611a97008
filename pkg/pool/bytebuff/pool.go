package bytebuff

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

const (
	numPools = 6
	// maxSize 超过 1MB 的 buffer 不回池
	maxSize = 1 << 20
)

// 分级: 64B 512B 4KB 32KB 256KB 1MB
var poolSizes = [numPools]int{1 << 6, 1 << 9, 1 << 12, 1 << 15, 1 << 18, 1 << 20}

// Pool 分级 bytes.Buffer 池，供 msgpack 编码使用
type Pool struct {
	pools [numPools]sync.Pool

	gets   atomic.Uint64
	puts   atomic.Uint64
	misses atomic.Uint64
}

var (
	defaultPool = NewPool()
	// bodyPool HTTP 请求体使用 valyala 的 ByteBuffer
	bodyPool bytebufferpool.Pool
)

// NewPool 创建分级池
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.pools {
		p.pools[i].New = func() interface{} { return &bytes.Buffer{} }
	}
	return p
}

// Get 按 sizeHint 选择分级取出 Buffer
func (p *Pool) Get(sizeHint int) *bytes.Buffer {
	p.gets.Add(1)

	buf := p.pools[selectPool(sizeHint)].Get().(*bytes.Buffer)
	if buf.Cap() < sizeHint {
		p.misses.Add(1)
		buf.Grow(sizeHint - buf.Len())
	}
	return buf
}

// Put 归还 Buffer
func (p *Pool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxSize {
		return
	}
	p.puts.Add(1)
	buf.Reset()
	p.pools[selectPool(buf.Cap())].Put(buf)
}

// Stats 统计信息
func (p *Pool) Stats() (gets, puts, misses uint64) {
	return p.gets.Load(), p.puts.Load(), p.misses.Load()
}

func selectPool(size int) int {
	if size <= 0 {
		return 0
	}
	for i, s := range poolSizes {
		if size <= s {
			return i
		}
	}
	return numPools - 1
}

// Get 从默认池获取
func Get(sizeHint int) *bytes.Buffer {
	return defaultPool.Get(sizeHint)
}

// Put 归还到默认池
func Put(buf *bytes.Buffer) {
	defaultPool.Put(buf)
}

// GetBody 获取请求体 ByteBuffer
func GetBody() *bytebufferpool.ByteBuffer {
	return bodyPool.Get()
}

// PutBody 归还请求体 ByteBuffer
func PutBody(b *bytebufferpool.ByteBuffer) {
	if b != nil {
		bodyPool.Put(b)
	}
}
