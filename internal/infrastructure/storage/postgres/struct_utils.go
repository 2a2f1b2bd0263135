package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns returns the column names declared by "db" tags on T, in
// field order. Embedded structs are flattened.
//
// Usage:
//
//	columns := ExtractDBColumns[functionalid.Generator]()
//	// Returns: ["label", "prefix", "sequence", "uid"]
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataFor(reflect.TypeOf(zero))
	cols := make([]string, 0, len(meta))
	for _, f := range meta {
		cols = append(cols, f.column)
	}
	return cols
}

// StructToMap converts a struct (or pointer to struct) into column -> value
// using its "db" tags. Returns nil for non-struct values.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta))
	for _, f := range meta {
		res[f.column] = rv.FieldByIndex(f.index).Interface()
	}
	return res
}

type column struct {
	index  []int
	column string
}

// typeCache holds []column per reflect.Type; reflection runs once per type.
var typeCache sync.Map

func metadataFor(t reflect.Type) []column {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collectColumns(t, nil)
	}
	typeCache.Store(t, cols)
	return cols
}

func collectColumns(t reflect.Type, parent []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			cols = append(cols, collectColumns(field.Type, index)...)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{index: index, column: tag})
	}
	return cols
}
