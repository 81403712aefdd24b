package compiler

import (
	"strconv"

	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/merge"
)

// copyFields copies the listed keys of src that are present into dest
func copyFields(dest, src *document.Object, keys ...string) {
	for _, k := range keys {
		copyAs(dest, k, src, k)
	}
}

// copyAs copies src[srcKey] into dest[destKey] when present
func copyAs(dest *document.Object, destKey string, src *document.Object, srcKey string) {
	if v, ok := src.Get(srcKey); ok {
		dest.Set(destKey, v.Clone())
	}
}

// objectField returns the object under key. A missing key yields nil; any
// other non-object value is malformed.
func objectField(o *document.Object, key, path string) (*document.Object, error) {
	v, ok := o.Get(key)
	if !ok {
		return nil, nil
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, malformed(pointer(path, key), "expected object, got %s", v.Type())
	}
	return obj, nil
}

// arrayField returns the elements under key, with the same rules as objectField
func arrayField(o *document.Object, key, path string) ([]document.Value, bool, error) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false, nil
	}
	arr, ok := v.AsArray()
	if !ok {
		return nil, false, malformed(pointer(path, key), "expected array, got %s", v.Type())
	}
	return arr, true, nil
}

// requiredString returns the string under key or a malformed error
func requiredString(o *document.Object, key, path string) (string, error) {
	v, ok := o.Get(key)
	if !ok {
		return "", malformed(pointer(path, key), "required field is missing")
	}
	s, ok := v.AsString()
	if !ok {
		return "", malformed(pointer(path, key), "expected string, got %s", v.Type())
	}
	return s, nil
}

// asObject checks that an element of a map or array is an object
func asObject(v document.Value, path string) (*document.Object, error) {
	obj, ok := v.AsObject()
	if !ok {
		return nil, malformed(path, "expected object, got %s", v.Type())
	}
	return obj, nil
}

// applyExternalDocs flattens an External Documentation object onto dest
func applyExternalDocs(dest, docs *document.Object) {
	if docs == nil {
		return
	}
	copyAs(dest, "extDocsDescription", docs, "description")
	copyAs(dest, "extDocsUrl", docs, "url")
	merge.Extensions(dest, docs)
}

// applyMediaType copies the first-class fields of a compiled media type entry
func applyMediaType(dest, media *document.Object) {
	copyFields(dest, media, "contentType", "Schema", "Example")
	merge.Extensions(dest, media)
}

func itoa(i int) string { return strconv.Itoa(i) }
