package serializer

import (
	"encoding/json"
)

// Serializer 序列化器接口
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
	// ContentType 内容类型
	ContentType() string
}

// JSON JSON 序列化器，用于 HTTP 与 kafka 变更事件
type JSON struct{}

// NewJSON 创建 JSON 序列化器
func NewJSON() *JSON {
	return &JSON{}
}

func (s *JSON) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (s *JSON) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (s *JSON) ContentType() string {
	return "application/json"
}

// Msgpack msgpack 序列化器，用于 redis 快照缓存
type Msgpack struct{}

// NewMsgpack 创建 msgpack 序列化器
func NewMsgpack() *Msgpack {
	return &Msgpack{}
}

func (s *Msgpack) Serialize(v any) ([]byte, error) {
	return Encode(v)
}

func (s *Msgpack) Deserialize(data []byte, v any) error {
	return Decode(data, v)
}

func (s *Msgpack) ContentType() string {
	return "application/msgpack"
}

// ByName 按名称获取序列化器，未知名称返回 false
func ByName(name string) (Serializer, bool) {
	switch name {
	case "json":
		return NewJSON(), true
	case "msgpack":
		return NewMsgpack(), true
	default:
		return nil, false
	}
}
