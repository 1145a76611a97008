package notify

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid notifier config")

	// ErrSendFailed 发送失败
	ErrSendFailed = errors.New("failed to send notification")
)
