package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_JSONPreservesOrder(t *testing.T) {
	obj, err := Decode([]byte(`{"zeta": 1, "alpha": {"b": true, "a": null}, "mid": ["x", 2.5]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())
	assert.Equal(t, []string{"b", "a"}, obj.ObjectAt("alpha").Keys())

	n, ok := mustGet(t, obj, "zeta").AsNumber()
	require.True(t, ok)
	assert.Equal(t, 1.0, n)

	arr, ok := obj.ArrayAt("mid")
	require.True(t, ok)
	require.Len(t, arr, 2)
	s, _ := arr[0].AsString()
	assert.Equal(t, "x", s)
}

func TestDecode_YAMLMatchesJSON(t *testing.T) {
	yamlDoc := `
openapi: 3.1.0
info:
  title: Pets
  version: "1.0"
paths:
  /pets:
    get:
      deprecated: false
      responses:
        200:
          description: ok
`
	jsonDoc := `{"openapi":"3.1.0","info":{"title":"Pets","version":"1.0"},"paths":{"/pets":{"get":{"deprecated":false,"responses":{"200":{"description":"ok"}}}}}}`

	fromYAML, err := Decode([]byte(yamlDoc))
	require.NoError(t, err)
	fromJSON, err := Decode([]byte(jsonDoc))
	require.NoError(t, err)

	y, err := json.Marshal(fromYAML)
	require.NoError(t, err)
	j, err := json.Marshal(fromJSON)
	require.NoError(t, err)
	assert.Equal(t, string(j), string(y))
}

func TestDecode_YAMLAnchorsAndMergeKeys(t *testing.T) {
	doc := `
base: &base
  type: string
  minLength: 1
name:
  <<: *base
  minLength: 3
`
	obj, err := Decode([]byte(doc))
	require.NoError(t, err)

	name := obj.ObjectAt("name")
	require.NotNil(t, name)
	typ, _ := name.StringAt("type")
	assert.Equal(t, "string", typ)
	min, _ := mustGet(t, name, "minLength").AsNumber()
	assert.Equal(t, 3.0, min)
}

func TestDecode_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := Decode([]byte("   "))
		assert.Error(t, err)
	})

	t.Run("top level array", func(t *testing.T) {
		_, err := Decode([]byte(`[1,2]`))
		assert.ErrorIs(t, err, ErrNotObject)
	})

	t.Run("trailing garbage", func(t *testing.T) {
		_, err := Decode([]byte(`{"a":1} {"b":2}`))
		assert.ErrorIs(t, err, errTrailingData)
	})

	t.Run("second YAML document", func(t *testing.T) {
		_, err := Decode([]byte("a: 1\n---\nb: 2\n"))
		assert.ErrorIs(t, err, errTrailingData)
	})

	t.Run("flow YAML is not JSON", func(t *testing.T) {
		obj, err := Decode([]byte(`{a: 1, b: [x, y]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, obj.Keys())
	})
}

// aliasLadder builds a YAML document where each anchor lists the previous one
// width times, so the last level expands to width^levels leaves.
func aliasLadder(levels, width int) string {
	var b strings.Builder
	b.WriteString("l0: &l0 [x]\n")
	for i := 1; i <= levels; i++ {
		refs := make([]string, width)
		for j := range refs {
			refs[j] = fmt.Sprintf("*l%d", i-1)
		}
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, strings.Join(refs, ", "))
	}
	return b.String()
}

func TestDecode_AliasExpansionBudget(t *testing.T) {
	t.Run("exponential fan-out fails", func(t *testing.T) {
		doc := aliasLadder(8, 10)
		require.Less(t, len(doc), 1024)

		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, ErrTooComplex)
	})

	t.Run("flow style document", func(t *testing.T) {
		doc := "{" + strings.ReplaceAll(strings.TrimSpace(aliasLadder(8, 10)), "\n", ", ") + "}"
		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, ErrTooComplex)
	})

	t.Run("modest reuse decodes", func(t *testing.T) {
		obj, err := Decode([]byte(aliasLadder(3, 10)))
		require.NoError(t, err)
		top, ok := obj.ArrayAt("l3")
		require.True(t, ok)
		assert.Len(t, top, 10)
	})
}

func TestObject_SetKeepsPosition(t *testing.T) {
	obj := NewObject()
	obj.SetString("a", "1").SetString("b", "2").SetString("a", "3")

	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	s, _ := obj.StringAt("a")
	assert.Equal(t, "3", s)

	_, ok := obj.Delete("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, obj.Keys())
	assert.False(t, obj.Has("a"))
}

func TestObject_CloneIsIndependent(t *testing.T) {
	child := NewObject().SetString("name", "id")
	obj := NewObject()
	obj.AppendObject("Property", child)

	clone := obj.Clone()
	clone.AppendObject("Property", NewObject().SetString("name", "other"))
	clone.ObjectsAt("Property")[0].SetString("name", "changed")

	assert.Len(t, obj.ObjectsAt("Property"), 1)
	name, _ := obj.ObjectsAt("Property")[0].StringAt("name")
	assert.Equal(t, "id", name)
}

func TestObject_AppendDoesNotShareBackingArray(t *testing.T) {
	obj := NewObject()
	obj.Append("tags", String("a"), String("b"))
	base, _ := obj.Get("tags")

	first := NewObject().Set("tags", base)
	second := NewObject().Set("tags", base)
	first.Append("tags", String("c"))
	second.Append("tags", String("d"))

	a, _ := first.ArrayAt("tags")
	b, _ := second.ArrayAt("tags")
	last := func(vs []Value) string {
		s, _ := vs[len(vs)-1].AsString()
		return s
	}
	assert.Equal(t, "c", last(a))
	assert.Equal(t, "d", last(b))
}

func TestScalarEqual(t *testing.T) {
	assert.True(t, ScalarEqual(String("a"), String("a")))
	assert.False(t, ScalarEqual(String("1"), Number(1)))
	assert.True(t, ScalarEqual(Null(), Null()))
	assert.True(t, ScalarEqual(Bool(true), Bool(true)))

	obj := ObjectValue(NewObject())
	assert.False(t, ScalarEqual(obj, obj), "objects are never equal by value")
	arr := ArrayOf(String("a"))
	assert.False(t, ScalarEqual(arr, arr))
}

func TestMarshalJSON_Numbers(t *testing.T) {
	obj := NewObject()
	obj.Set("int", Int(200)).Set("float", Number(1.5)).Set("neg", Number(-3))

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"int":200,"float":1.5,"neg":-3}`, string(data))
	assert.Equal(t, `{"int":200,"float":1.5,"neg":-3}`, string(data))
}

func TestUnmarshalJSON_RoundTrip(t *testing.T) {
	src := `{"b":[1,{"c":"d"}],"a":false}`
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(src), &obj))

	data, err := json.Marshal(&obj)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(map[string]interface{}{
		"b": []interface{}{"x", 1},
		"a": true,
	})
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, obj.Keys())

	_, err = FromInterface(struct{}{})
	assert.Error(t, err)
}

func mustGet(t *testing.T, o *Object, key string) Value {
	t.Helper()
	v, ok := o.Get(key)
	require.True(t, ok, "missing key %q", key)
	return v
}
