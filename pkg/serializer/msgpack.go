package serializer

import (
	"bytes"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/lk2023060901/partysheet/pkg/pool/bytebuff"
)

// msgpackHandle RawToString=true，map 解码为 map[string]interface{}
var msgpackHandle = &codec.MsgpackHandle{}

func init() {
	msgpackHandle.MapType = reflect.TypeOf(map[string]interface{}{})
	msgpackHandle.RawToString = true
}

const defaultSizeHint = 256

// Encode msgpack 编码
func Encode(v interface{}) ([]byte, error) {
	return EncodeWithSizeHint(v, defaultSizeHint)
}

// EncodeWithSizeHint msgpack 编码，sizeHint 用于选择 buffer 分级
func EncodeWithSizeHint(v interface{}, sizeHint int) ([]byte, error) {
	buf := bytebuff.Get(sizeHint)
	defer bytebuff.Put(buf)

	if err := codec.NewEncoder(buf, msgpackHandle).Encode(v); err != nil {
		return nil, err
	}

	// buf 会被复用，必须拷贝
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Decode msgpack 解码
func Decode(data []byte, v interface{}) error {
	return codec.NewDecoder(bytes.NewReader(data), msgpackHandle).Decode(v)
}
