package kafka

import "github.com/cockroachdb/errors"

// 配置错误
var (
	ErrInvalidConfig = errors.New("kafka: invalid config")
	ErrNoBrokers     = errors.New("kafka: no brokers configured")
)

// 运行期错误
var (
	ErrEmptyTopic     = errors.New("kafka: empty topic")
	ErrClientClosed   = errors.New("kafka: client is closed")
	ErrProducerClosed = errors.New("kafka: producer is closed")
	// ErrProducerPanic 由恢复中间件返回，原始 panic 值附在错误信息里
	ErrProducerPanic = errors.New("kafka: producer panic")
)
