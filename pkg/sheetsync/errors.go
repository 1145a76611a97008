package sheetsync

import "github.com/cockroachdb/errors"

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("sheetsync: config is nil")

	// ErrInvalidConfig 配置不合法
	ErrInvalidConfig = errors.New("sheetsync: invalid config")

	// ErrStoreClosed store 已卸载
	ErrStoreClosed = errors.New("sheetsync: store closed")

	// ErrForwarderClosed forwarder 已关闭，不再转发
	ErrForwarderClosed = errors.New("sheetsync: forwarder closed")

	// ErrInvariant 动作应用后不变量被破坏
	ErrInvariant = errors.New("sheetsync: invariant violated")

	// ErrNotModified 服务端快照自上次拉取后未变化
	ErrNotModified = errors.New("sheetsync: not modified")

	// ErrNotFound 表不存在
	ErrNotFound = errors.New("sheetsync: sheet not found")

	// ErrBadResponse 网关响应无法解析
	ErrBadResponse = errors.New("sheetsync: bad gateway response")
)
