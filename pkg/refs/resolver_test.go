package refs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/document"
)

func mustDecode(t *testing.T, src string) *document.Object {
	t.Helper()
	obj, err := document.Decode([]byte(src))
	require.NoError(t, err)
	return obj
}

const petsDoc = `{
  "components": {
    "schemas": {
      "Pet": {"type": "object", "description": "a pet"},
      "Alias": {"$ref": "#/components/schemas/Pet", "description": "aliased"},
      "X": {"$ref": "#/components/schemas/Y"},
      "Y": {"$ref": "#/components/schemas/X"},
      "a/b": {"type": "string"}
    }
  }
}`

func TestResolveString(t *testing.T) {
	r := NewResolver(mustDecode(t, petsDoc))

	t.Run("local", func(t *testing.T) {
		obj, err := r.ResolveString("#/components/schemas/Pet")
		require.NoError(t, err)
		typ, _ := obj.StringAt("type")
		assert.Equal(t, "object", typ)
	})

	t.Run("escaped segment", func(t *testing.T) {
		obj, err := r.ResolveString("#/components/schemas/a~1b")
		require.NoError(t, err)
		typ, _ := obj.StringAt("type")
		assert.Equal(t, "string", typ)
	})

	t.Run("trailing slash", func(t *testing.T) {
		obj, err := r.ResolveString("#/components/schemas/Pet/")
		require.NoError(t, err)
		typ, _ := obj.StringAt("type")
		assert.Equal(t, "object", typ)
	})

	t.Run("empty inner segment", func(t *testing.T) {
		_, err := r.ResolveString("#/components//Pet")
		assert.ErrorIs(t, err, ErrBrokenReference)
	})

	t.Run("external", func(t *testing.T) {
		_, err := r.ResolveString("other.yaml#/components/schemas/Pet")
		assert.ErrorIs(t, err, ErrUnsupportedReference)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := r.ResolveString("#/components/schemas/Nope")
		assert.ErrorIs(t, err, ErrBrokenReference)

		var rerr *Error
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "#/components/schemas/Nope", rerr.Ref)
	})

	t.Run("returns a copy", func(t *testing.T) {
		obj, err := r.ResolveString("#/components/schemas/Pet")
		require.NoError(t, err)
		obj.SetString("type", "changed")

		again, err := r.ResolveString("#/components/schemas/Pet")
		require.NoError(t, err)
		typ, _ := again.StringAt("type")
		assert.Equal(t, "object", typ)
	})
}

func TestResolve(t *testing.T) {
	r := NewResolver(mustDecode(t, petsDoc))

	t.Run("not a reference", func(t *testing.T) {
		obj := document.NewObject().SetString("type", "integer")
		got, err := r.Resolve(obj)
		require.NoError(t, err)
		assert.Same(t, obj, got)
	})

	t.Run("description overlay through chain", func(t *testing.T) {
		wrapper := document.NewObject().
			SetString("$ref", "#/components/schemas/Alias").
			SetString("summary", "outer")
		got, err := r.Resolve(wrapper)
		require.NoError(t, err)

		typ, _ := got.StringAt("type")
		desc, _ := got.StringAt("description")
		summary, _ := got.StringAt("summary")
		assert.Equal(t, "object", typ)
		assert.Equal(t, "aliased", desc)
		assert.Equal(t, "outer", summary)
		assert.False(t, IsReference(got))
	})

	t.Run("wrapper description wins", func(t *testing.T) {
		wrapper := document.NewObject().
			SetString("$ref", "#/components/schemas/Alias").
			SetString("description", "outer")
		got, err := r.Resolve(wrapper)
		require.NoError(t, err)
		desc, _ := got.StringAt("description")
		assert.Equal(t, "outer", desc)
	})

	t.Run("cycle", func(t *testing.T) {
		wrapper := document.NewObject().SetString("$ref", "#/components/schemas/X")
		_, err := r.Resolve(wrapper)
		assert.ErrorIs(t, err, ErrReferenceCycle)
	})

	t.Run("non string ref", func(t *testing.T) {
		wrapper := document.NewObject().Set("$ref", document.Int(3))
		_, err := r.Resolve(wrapper)
		assert.ErrorIs(t, err, ErrBrokenReference)
	})
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "~1pets~1{id}", Escape("/pets/{id}"))
	assert.Equal(t, "a~0b", Escape("a~b"))
	assert.Equal(t, "/pets/{id}", unescape(Escape("/pets/{id}")))
}
