package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/web/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 提示信息
	Data    any    `json:"data"`    // 数据载体
	TraceID string `json:"traceId,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	Respond(c, http.StatusOK, data)
}

// Created 资源创建成功
func Created(c *gin.Context, data any) {
	Respond(c, http.StatusCreated, data)
}

// Respond 以指定状态码返回成功数据
func Respond(c *gin.Context, httpStatus int, data any) {
	c.JSON(httpStatus, Response{
		Code:    errors.CodeOK,
		Message: "ok",
		Data:    data,
		TraceID: logger.TraceIDFrom(c.Request.Context()),
	})
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: logger.TraceIDFrom(c.Request.Context()),
	})
}

// ErrorCode 按业务错误码推导 HTTP 状态码
func ErrorCode(c *gin.Context, code int, message string) {
	Error(c, errors.CodeToStatus(code), code, message)
}

// AbortWithError 中断并返回错误
func AbortWithError(c *gin.Context, httpStatus int, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: logger.TraceIDFrom(c.Request.Context()),
	})
}
