package app

import (
	"github.com/google/wire"
)

// Components Wire 注入后收集的服务与资源
type Components struct {
	Servers []Server
	Closers []Closer
}

// ProviderSet 导出给 Wire 使用
var ProviderSet = wire.NewSet(
	NewBaseApp,
)

// InitApp 把组件绑定到 BaseApp
func InitApp(app *BaseApp, comps Components) Application {
	app.AppendServer(comps.Servers...)
	app.AppendCloser(comps.Closers...)
	return app
}

// CloserFunc 函数形式的 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}

// CloseNoErr 适配没有返回值的 Close()
func CloseNoErr(c interface{ Close() }) Closer {
	return CloserFunc(func() error {
		c.Close()
		return nil
	})
}
