package query

import (
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/document"
)

// PathSeparatorSubstitute stands in for "." inside result field names, since
// the backing store does not allow dots in keys
const PathSeparatorSubstitute = "@"

// Flatten post-processes one result row. Every key listed in flattened that
// holds a record is expanded into "key.field" entries; the remaining keys get
// the separator substitute turned back into dots. Null values are dropped
// throughout. ok is false when nothing is left.
func Flatten(row *document.Object, flattened []string) (out *document.Object, ok bool) {
	out = document.NewObject()
	skip := make(map[string]bool, len(flattened))

	for _, key := range flattened {
		v, present := row.Get(key)
		if !present {
			continue
		}
		sub, isObj := v.AsObject()
		if !isObj {
			continue
		}
		skip[key] = true
		sub.Range(func(field string, fv document.Value) bool {
			if !fv.IsNull() {
				out.Set(key+"."+field, fv)
			}
			return true
		})
	}

	row.Range(func(key string, v document.Value) bool {
		if skip[key] || v.IsNull() {
			return true
		}
		out.Set(strings.ReplaceAll(key, PathSeparatorSubstitute, "."), v)
		return true
	})
	return out, out.Len() > 0
}

// FlattenAll post-processes rows and drops the ones left empty
func FlattenAll(rows []*document.Object, flattened []string) []*document.Object {
	out := make([]*document.Object, 0, len(rows))
	for _, r := range rows {
		if flat, ok := Flatten(r, flattened); ok {
			out = append(out, flat)
		}
	}
	return out
}
