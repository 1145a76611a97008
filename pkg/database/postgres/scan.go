package postgres

import (
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// columnIndex 结构体类型 -> 列名到字段下标的映射
var columnIndex sync.Map // map[reflect.Type]map[string]int

func columnsOf(t reflect.Type) map[string]int {
	if cached, ok := columnIndex.Load(t); ok {
		return cached.(map[string]int)
	}

	cols := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = toSnakeCase(field.Name)
		}
		cols[name] = i
	}

	actual, _ := columnIndex.LoadOrStore(t, cols)
	return actual.(map[string]int)
}

func scanOne[T any](rows pgx.Rows) (*T, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "scan rows")
		}
		return nil, ErrNoRows
	}

	var result T
	if err := scanStruct(rows, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func scanAll[T any](rows pgx.Rows) ([]*T, error) {
	results := make([]*T, 0)
	for rows.Next() {
		var item T
		if err := scanStruct(rows, &item); err != nil {
			return nil, err
		}
		results = append(results, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "scan rows")
	}
	return results, nil
}

// scanStruct 按列名把当前行扫描到结构体字段，未映射的列被丢弃
func scanStruct(rows pgx.Rows, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.Newf("dest must be a pointer to struct, got %T", dest)
	}
	v = v.Elem()

	cols := columnsOf(v.Type())
	fds := rows.FieldDescriptions()
	targets := make([]any, len(fds))
	for i, fd := range fds {
		if idx, ok := cols[fd.Name]; ok {
			targets[i] = v.Field(idx).Addr().Interface()
			continue
		}
		var discard any
		targets[i] = &discard
	}

	return rows.Scan(targets...)
}

// toSnakeCase CarriedBy -> carried_by
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
