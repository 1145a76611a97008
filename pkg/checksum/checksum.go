package checksum

import (
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// Hasher 校验和计算器
type Hasher interface {
	Sum(data []byte) uint64
	Name() string
}

// Type 校验算法类型
type Type string

const (
	// TypeCRC32C Castagnoli 多项式，硬件加速
	TypeCRC32C Type = "crc32c"
	// TypeXXHash xxhash64，快照 ETag 使用
	TypeXXHash Type = "xxhash"
)

// ErrUnsupportedType 未知校验算法
var ErrUnsupportedType = errors.New("checksum: unsupported type")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type crc32cHasher struct{}

func (crc32cHasher) Sum(data []byte) uint64 { return uint64(crc32.Checksum(data, castagnoli)) }
func (crc32cHasher) Name() string           { return string(TypeCRC32C) }

type xxhashHasher struct{}

func (xxhashHasher) Sum(data []byte) uint64 { return xxhash.Sum64(data) }
func (xxhashHasher) Name() string           { return string(TypeXXHash) }

// New 创建校验器
func New(t Type) (Hasher, error) {
	switch t {
	case TypeCRC32C:
		return crc32cHasher{}, nil
	case TypeXXHash:
		return xxhashHasher{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%q", string(t))
	}
}

// Verify 校验数据
func Verify(h Hasher, data []byte, expected uint64) bool {
	return h.Sum(data) == expected
}

// ETag 生成强 ETag（带引号的 xxhash 十六进制）
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

// MatchETag 判断 If-None-Match 是否命中，支持逗号分隔列表、弱校验前缀与 *
func MatchETag(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if candidate == "*" || trimWeak(candidate) == trimWeak(etag) {
			return true
		}
	}
	return false
}

func trimWeak(tag string) string {
	return strings.TrimPrefix(tag, "W/")
}
