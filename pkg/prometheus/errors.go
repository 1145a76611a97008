package prometheus

import "github.com/cockroachdb/errors"

var (
	ErrInvalidConfig = errors.New("prometheus: invalid config")
	// ErrMetricExists 同名指标重复注册
	ErrMetricExists = errors.New("prometheus: metric already exists")
	ErrClientClosed = errors.New("prometheus: client closed")
)
