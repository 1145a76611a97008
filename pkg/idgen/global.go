package idgen

import (
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	global Generator
	mu     sync.RWMutex

	// ErrNotInitialized 全局生成器未初始化
	ErrNotInitialized = errors.New("id generator not initialized")
)

// Init 初始化全局ID生成器
func Init(g Generator) {
	mu.Lock()
	defer mu.Unlock()
	global = g
}

func current() (Generator, error) {
	mu.RLock()
	g := global
	mu.RUnlock()

	if g == nil {
		return nil, ErrNotInitialized
	}
	return g, nil
}

// NextID 使用全局生成器生成ID
func NextID() (int64, error) {
	g, err := current()
	if err != nil {
		return 0, err
	}
	return g.NextID()
}

// NextString 使用全局生成器生成字符串ID
func NextString() (string, error) {
	g, err := current()
	if err != nil {
		return "", err
	}
	return g.NextString()
}
