package fields

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx/reflectx"
)

// same conventions as sqlx: db tag first, lowercased field name otherwise
var mapper = reflectx.NewMapperFunc("db", strings.ToLower)

type Field struct {
	Column string
	Name   string
	Index  []int
	Type   reflect.Type
}

// Of returns the constructible fields of a struct type in mapping order.
// Nested struct members are not flattened; only embedded structs are.
func Of(t reflect.Type) []Field {
	t = reflectx.Deref(t)
	if t.Kind() != reflect.Struct {
		return nil
	}

	seen := make(map[string]bool)
	result := []Field{}
	for _, fi := range mapper.TypeMap(t).Index {
		if fi == nil || fi.Embedded || fi.Name == "" || fi.Name == "-" {
			continue
		}
		if strings.Contains(fi.Path, ".") || fi.Field.Tag.Get("db") == "-" {
			continue
		}
		if seen[fi.Path] {
			continue
		}
		seen[fi.Path] = true

		result = append(result, Field{
			Column: fi.Path,
			Name:   fi.Field.Name,
			Index:  fi.Index,
			Type:   fi.Field.Type,
		})
	}
	return result
}

func Columns(t reflect.Type) []string {
	fs := Of(t)
	columns := make([]string, len(fs))
	for i, f := range fs {
		columns[i] = f.Column
	}
	return columns
}

// ByIndex returns the field of v at the index path, allocating nil
// embedded pointers on the way.
func ByIndex(v reflect.Value, index []int) reflect.Value {
	return reflectx.FieldByIndexes(v, index)
}

// Snake converts a Go identifier to snake_case, keeping acronyms together.
func Snake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
