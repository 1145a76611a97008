package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// CORS 跨域中间件，未配置 AllowOrigins 时允许所有来源
// 浏览器端同步需要读取 ETag、发送 If-None-Match
func CORS(cfg *CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "If-None-Match", "X-Request-Id"},
		ExposeHeaders: []string{"Content-Length", "ETag", "X-Trace-Id"},
		MaxAge:        12 * time.Hour,
	}
	if cfg != nil && len(cfg.AllowOrigins) > 0 {
		c.AllowOrigins = cfg.AllowOrigins
	} else {
		c.AllowAllOrigins = true
	}
	if cfg != nil && cfg.MaxAge > 0 {
		c.MaxAge = cfg.MaxAge
	}
	return cors.New(c)
}
