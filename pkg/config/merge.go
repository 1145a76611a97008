package config

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// MergeConfig 把 src 中的非零值覆盖到 dst 上，返回 dst
//
//   - 零值（false、0、""、nil、空切片）视为未设置，因此无法用来覆盖默认值
//   - 结构体与 map 逐字段/逐 key 递归合并，切片整体替换
//   - dst 为 nil 时直接返回 src，两者都为 nil 时报错
//
// 各组件的 New 都以 MergeConfig(DefaultConfig(), cfg) 补齐默认值
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, errors.New("merge config: both dst and src are nil")
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := merge(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, errors.Wrap(err, "merge config")
	}
	return dst, nil
}

func merge(dst, src reflect.Value) error {
	if !src.IsValid() || isUnset(src) {
		return nil
	}
	if dst.Kind() != src.Kind() {
		return errors.Newf("kind mismatch: %s vs %s", dst.Kind(), src.Kind())
	}

	switch dst.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			df := dst.FieldByName(f.Name)
			if !df.IsValid() || !df.CanSet() {
				continue
			}
			if err := merge(df, src.Field(i)); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return nil

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		it := src.MapRange()
		for it.Next() {
			cur := dst.MapIndex(it.Key())
			if !cur.IsValid() {
				dst.SetMapIndex(it.Key(), it.Value())
				continue
			}
			// map 元素不可寻址，拷贝出来合并后写回
			v := reflect.New(dst.Type().Elem()).Elem()
			v.Set(cur)
			if err := merge(v, it.Value()); err != nil {
				return errors.Wrapf(err, "key %v", it.Key())
			}
			dst.SetMapIndex(it.Key(), v)
		}
		return nil

	case reflect.Pointer:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return merge(dst.Elem(), src.Elem())

	default:
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}
