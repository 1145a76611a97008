package postgres

import (
	"time"

	"github.com/Masterminds/squirrel"
)

// PoolStats 连接池统计信息
type PoolStats struct {
	AcquireCount         int64
	AcquireDuration      time.Duration
	AcquiredConns        int32
	CanceledAcquireCount int64
	IdleConns            int32
	MaxConns             int32
	TotalConns           int32
}

// QueryBuilder SQL 构建器，使用 $n 占位符
var QueryBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
