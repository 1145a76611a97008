package compress

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// Compressor 压缩器接口，实现需并发安全
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
	Name() string
}

// Factory 压缩器工厂
type Factory func() (Compressor, error)

// Type 压缩算法类型
type Type string

const (
	TypeNone   Type = "none"
	TypeSnappy Type = "snappy"
	TypeZstd   Type = "zstd"
	TypeLZ4    Type = "lz4"
)

// ErrUnsupportedType 未注册的压缩算法
var ErrUnsupportedType = errors.New("compress: unsupported type")

var (
	mu        sync.RWMutex
	factories = make(map[Type]Factory)
)

func init() {
	Register(TypeNone, func() (Compressor, error) { return noneCompressor{}, nil })
	Register(TypeSnappy, func() (Compressor, error) { return snappyCompressor{}, nil })
	Register(TypeZstd, func() (Compressor, error) { return newZstdCompressor() })
	Register(TypeLZ4, func() (Compressor, error) { return lz4Compressor{}, nil })
}

// Register 注册压缩器工厂
func Register(t Type, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[t] = factory
}

// Unregister 注销压缩器工厂
func Unregister(t Type) {
	mu.Lock()
	defer mu.Unlock()
	delete(factories, t)
}

// New 创建压缩器
func New(t Type) (Compressor, error) {
	mu.RLock()
	factory, ok := factories[t]
	mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedType, "%q", string(t))
	}
	return factory()
}

// MustNew 创建压缩器，失败时 panic
func MustNew(t Type) Compressor {
	c, err := New(t)
	if err != nil {
		panic(err)
	}
	return c
}

// List 已注册的压缩算法，按名称排序
func List() []Type {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// IsRegistered 是否已注册
func IsRegistered(t Type) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[t]
	return ok
}
