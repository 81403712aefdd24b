package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/document"
)

func stringsOf(t *testing.T, v document.Value) []string {
	t.Helper()
	arr, ok := v.AsArray()
	require.True(t, ok, "expected array, got %s", v.Type())
	out := make([]string, len(arr))
	for i, e := range arr {
		out[i], _ = e.AsString()
	}
	return out
}

func get(t *testing.T, o *document.Object, key string) document.Value {
	t.Helper()
	v, ok := o.Get(key)
	require.True(t, ok, "missing key %q", key)
	return v
}

func TestExtensions(t *testing.T) {
	t.Run("plain copy and non extension keys ignored", func(t *testing.T) {
		dest := document.NewObject()
		src := document.NewObject().SetString("x-a", "1").SetString("title", "ignored")
		Extensions(dest, src)

		assert.Equal(t, []string{"x-a"}, dest.Keys())
	})

	t.Run("scalar and scalar", func(t *testing.T) {
		dest := document.NewObject().SetString("x-a", "1")
		Extensions(dest, document.NewObject().SetString("x-a", "2"))
		assert.Equal(t, []string{"1", "2"}, stringsOf(t, get(t, dest, "x-a")))
	})

	t.Run("scalar and array puts dest last", func(t *testing.T) {
		dest := document.NewObject().SetString("x-a", "d")
		src := document.NewObject().Set("x-a", document.ArrayOf(document.String("s1"), document.String("s2")))
		Extensions(dest, src)
		assert.Equal(t, []string{"s1", "s2", "d"}, stringsOf(t, get(t, dest, "x-a")))
		assert.Equal(t, []string{"s1", "s2"}, stringsOf(t, get(t, src, "x-a")), "source must not change")
	})

	t.Run("array and array", func(t *testing.T) {
		dest := document.NewObject().Set("x-a", document.ArrayOf(document.String("a")))
		src := document.NewObject().Set("x-a", document.ArrayOf(document.String("a"), document.String("b")))
		Extensions(dest, src)
		assert.Equal(t, []string{"a", "a", "b"}, stringsOf(t, get(t, dest, "x-a")))
	})

	t.Run("repeated merges grow", func(t *testing.T) {
		dest := document.NewObject().SetString("x-a", "v")
		src := document.NewObject().SetString("x-a", "v")
		Extensions(dest, src)
		Extensions(dest, src)
		Extensions(dest, src)
		assert.Equal(t, []string{"v", "v", "v", "v"}, stringsOf(t, get(t, dest, "x-a")))
	})
}

func TestAccumulate(t *testing.T) {
	t.Run("equal scalars dedup", func(t *testing.T) {
		dest := document.NewObject().SetString("type", "string")
		Accumulate(dest, document.NewObject().SetString("type", "string"))
		typ, ok := dest.StringAt("type")
		require.True(t, ok)
		assert.Equal(t, "string", typ)
	})

	t.Run("unequal scalars", func(t *testing.T) {
		dest := document.NewObject().SetString("type", "string")
		Accumulate(dest, document.NewObject().SetString("type", "integer"))
		assert.Equal(t, []string{"string", "integer"}, stringsOf(t, get(t, dest, "type")))
	})

	t.Run("array and scalar", func(t *testing.T) {
		dest := document.NewObject().Set("type", document.ArrayOf(document.String("a"), document.String("b")))
		Accumulate(dest, document.NewObject().SetString("type", "a"))
		Accumulate(dest, document.NewObject().SetString("type", "c"))
		assert.Equal(t, []string{"a", "b", "c"}, stringsOf(t, get(t, dest, "type")))
	})

	t.Run("scalar and array", func(t *testing.T) {
		dest := document.NewObject().SetString("required", "id")
		Accumulate(dest, document.NewObject().Set("required", document.ArrayOf(document.String("name"))))
		assert.Equal(t, []string{"name", "id"}, stringsOf(t, get(t, dest, "required")))

		kept := document.NewObject().SetString("required", "id")
		Accumulate(kept, document.NewObject().Set("required", document.ArrayOf(document.String("id"))))
		s, ok := kept.StringAt("required")
		assert.True(t, ok, "scalar already present in source stays scalar")
		assert.Equal(t, "id", s)
	})

	t.Run("objects never dedup", func(t *testing.T) {
		dest := document.NewObject().SetObject("const", document.NewObject().SetString("a", "b"))
		Accumulate(dest, document.NewObject().SetObject("const", document.NewObject().SetString("a", "b")))
		assert.Equal(t, 2, get(t, dest, "const").Len())
	})

	t.Run("properties merge by name", func(t *testing.T) {
		dest := document.NewObject()
		dest.AppendObject(PropertyKey, document.NewObject().SetString("name", "id").SetString("type", "string"))

		src := document.NewObject()
		src.AppendObject(PropertyKey, document.NewObject().SetString("name", "id").SetString("format", "uuid"))
		src.AppendObject(PropertyKey, document.NewObject().SetString("name", "tag").SetString("type", "string"))
		Accumulate(dest, src)

		props := dest.ObjectsAt(PropertyKey)
		require.Len(t, props, 2)
		format, _ := props[0].StringAt("format")
		assert.Equal(t, "uuid", format)
		name, _ := props[1].StringAt("name")
		assert.Equal(t, "tag", name)
	})

	t.Run("source only keys are copied", func(t *testing.T) {
		child := document.NewObject().SetString("k", "v")
		src := document.NewObject().SetObject("nested", child)
		dest := document.NewObject()
		Accumulate(dest, src)

		dest.ObjectAt("nested").SetString("k", "changed")
		v, _ := child.StringAt("k")
		assert.Equal(t, "v", v)
	})
}

func TestMultiply(t *testing.T) {
	a := document.NewObject().SetString("v", "a")
	b := document.NewObject().SetString("v", "b")
	subs := []*document.Object{
		document.NewObject().SetString("name", "p1"),
		document.NewObject().SetString("name", "p2"),
		document.NewObject().SetString("name", "p3"),
	}

	out := Multiply([]*document.Object{a, b}, subs, PropertyKey)
	require.Len(t, out, 6)

	expect := []struct{ v, prop string }{
		{"a", "p1"}, {"b", "p1"},
		{"a", "p2"}, {"b", "p2"},
		{"a", "p3"}, {"b", "p3"},
	}
	for i, e := range expect {
		v, _ := out[i].StringAt("v")
		props := out[i].ObjectsAt(PropertyKey)
		require.Len(t, props, 1)
		name, _ := props[0].StringAt("name")
		assert.Equal(t, e.v, v, "variant %d", i)
		assert.Equal(t, e.prop, name, "variant %d", i)
	}

	t.Run("empty sub", func(t *testing.T) {
		in := []*document.Object{document.NewObject()}
		assert.Equal(t, in, Multiply(in, nil, ItemKey))
	})
}

func TestFold(t *testing.T) {
	t.Run("single sub keeps count", func(t *testing.T) {
		base := []*document.Object{document.NewObject().SetString("a", "1")}
		out := Fold(base, []*document.Object{document.NewObject().SetString("b", "2")})
		require.Len(t, out, 1)
		assert.Equal(t, []string{"a", "b"}, out[0].Keys())
	})

	t.Run("branches per sub", func(t *testing.T) {
		base := []*document.Object{document.NewObject().SetString("a", "1")}
		out := Fold(base, []*document.Object{
			document.NewObject().SetString("b", "x"),
			document.NewObject().SetString("c", "y"),
		})
		require.Len(t, out, 2)
		assert.True(t, out[0].Has("b"))
		assert.False(t, out[0].Has("c"))
		assert.True(t, out[1].Has("c"))
		assert.False(t, out[1].Has("b"))
	})
}

func TestBudget(t *testing.T) {
	b := Budget{Max: 10}
	assert.NoError(t, b.Check(10))
	assert.ErrorIs(t, b.Check(11), ErrTooComplex)
	assert.NoError(t, b.CheckProduct(2, 5))
	assert.ErrorIs(t, b.CheckProduct(3, 4), ErrTooComplex)
	assert.ErrorIs(t, b.CheckProduct(1<<40, 1<<40), ErrTooComplex)
	assert.NoError(t, Budget{}.CheckProduct(1<<40, 1<<40))
}
