package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/partysheet/pkg/web/metrics"
)

// Metrics 接口监控中间件
func Metrics(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // 路由定义的路径，避免 sheet id 撑爆标签
		if path == "" {
			path = "unknown"
		}

		c.Next()

		m.Observe(path, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
