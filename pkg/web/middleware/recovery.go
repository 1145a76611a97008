package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/partysheet/pkg/logger"
	weberrors "github.com/lk2023060901/partysheet/pkg/web/errors"
)

// PanicReporter panic 上报接口（如 sentry）
type PanicReporter interface {
	RecoverWithContext(recovered interface{}) string
}

// Recovery 适配 pkg/logger 的异常恢复中间件，reporter 可为 nil
func Recovery(l logger.Logger, reporter PanicReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			httpRequest, _ := httputil.DumpRequest(c.Request, false)
			if isBrokenPipe(rec) {
				l.WarnContext(c.Request.Context(), "http broken pipe",
					"error", rec,
					"request", string(httpRequest),
				)
				_ = c.Error(fmt.Errorf("%v", rec))
				c.Abort()
				return
			}

			var eventID string
			if reporter != nil {
				eventID = reporter.RecoverWithContext(rec)
			}
			l.ErrorContext(c.Request.Context(), "http recovery from panic",
				"error", rec,
				"event_id", eventID,
				"request", string(httpRequest),
			)

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    weberrors.CodeInternalError,
				"message": "internal server error",
				"data":    nil,
			})
		}()
		c.Next()
	}
}

// isBrokenPipe 客户端断开连接时写回响应没有意义
func isBrokenPipe(rec interface{}) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
