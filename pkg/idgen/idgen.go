package idgen

// Generator ID生成器接口
type Generator interface {
	// NextID 生成下一个唯一ID
	NextID() (int64, error)
	// NextString 生成字符串形式的唯一ID，用于 sheet / item / character
	NextString() (string, error)
}
