// Package validator 配置 gin 绑定使用的校验引擎
package validator

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Rule 自定义校验规则，在 binding tag 中按 Tag 引用
type Rule struct {
	Tag string
	Fn  validator.Func
}

// Init 让校验错误使用 json 字段名，并注册自定义规则
// 需要在第一次绑定请求之前调用
func Init(rules ...Rule) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for _, r := range rules {
		if err := v.RegisterValidation(r.Tag, r.Fn); err != nil {
			return errors.Wrapf(err, "register validation %s", r.Tag)
		}
	}
	return nil
}
