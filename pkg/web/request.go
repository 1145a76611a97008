package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	weberrors "github.com/lk2023060901/partysheet/pkg/web/errors"
)

// BindAndValidate 绑定 JSON 请求体并校验，失败时直接写回 400
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, errs.Error())
			return false
		}
		Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// GetQuery 获取查询参数，带默认值
func GetQuery(c *gin.Context, key, defaultValue string) string {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	return val
}
