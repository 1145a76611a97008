package compress

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type noneCompressor struct{}

func (noneCompressor) Compress(src []byte) ([]byte, error)   { return clone(src), nil }
func (noneCompressor) Decompress(src []byte) ([]byte, error) { return clone(src), nil }
func (noneCompressor) Name() string                          { return string(TypeNone) }

func clone(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

type snappyCompressor struct{}

func (snappyCompressor) Compress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	return snappy.Encode(nil, src), nil
}

func (snappyCompressor) Decompress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	return snappy.Decode(nil, src)
}

func (snappyCompressor) Name() string { return string(TypeSnappy) }

// zstdCompressor EncodeAll/DecodeAll 可并发调用
type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	return &zstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (c *zstdCompressor) Compress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	return c.encoder.EncodeAll(src, nil), nil
}

func (c *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	return c.decoder.DecodeAll(src, nil)
}

func (c *zstdCompressor) Name() string { return string(TypeZstd) }

// lz4Compressor 块格式: uvarint(原始长度) + flag(0 原样 / 1 压缩) + 数据
type lz4Compressor struct{}

const (
	lz4Raw        byte = 0
	lz4Compressed byte = 1
)

var errLZ4Corrupt = errors.New("compress: corrupt lz4 block")

func (lz4Compressor) Compress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}

	header := make([]byte, binary.MaxVarintLen64+1)
	n := binary.PutUvarint(header, uint64(len(src)))

	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	size, err := c.CompressBlock(src, dst)
	if err != nil {
		return nil, err
	}

	// 不可压缩时 size 为 0
	if size == 0 || size >= len(src) {
		header[n] = lz4Raw
		return append(header[:n+1], src...), nil
	}
	header[n] = lz4Compressed
	return append(header[:n+1], dst[:size]...), nil
}

func (lz4Compressor) Decompress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}

	size, n := binary.Uvarint(src)
	if n <= 0 || len(src) < n+1 {
		return nil, errLZ4Corrupt
	}
	flag, body := src[n], src[n+1:]

	switch flag {
	case lz4Raw:
		if uint64(len(body)) != size {
			return nil, errLZ4Corrupt
		}
		return clone(body), nil
	case lz4Compressed:
		dst := make([]byte, size)
		got, err := lz4.UncompressBlock(body, dst)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 uncompress")
		}
		if uint64(got) != size {
			return nil, errLZ4Corrupt
		}
		return dst, nil
	default:
		return nil, errLZ4Corrupt
	}
}

func (lz4Compressor) Name() string { return string(TypeLZ4) }
