package dao

import "github.com/cockroachdb/errors"

var (
	// ErrSheetNotFound 物品表不存在
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrUnknownCodec 缓存压缩算法未注册
	ErrUnknownCodec = errors.New("unknown cache codec")
)
