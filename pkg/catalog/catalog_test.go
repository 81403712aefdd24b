package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/document"
)

func pathStrings(paths []Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("Operation")
	assert.Error(t, err)
	assert.Len(t, Kinds(), 18)
}

func TestDefault_SchemaReachableThroughRequest(t *testing.T) {
	cat := Default()
	paths := pathStrings(cat.Paths(Schema))

	assert.Contains(t, paths, "Service.Request")
	assert.Contains(t, paths, "Service.Request.Response")
	assert.Contains(t, paths, "Service.Tag")
	assert.Equal(t, "Service.Request", paths[0], "paths follow edge declaration order")
	for _, p := range paths {
		assert.True(t, strings.HasPrefix(p, "Service"), "path %q must start at the root", p)
	}
}

func TestDefault_ResponseChains(t *testing.T) {
	cat := Default()

	assert.Equal(t, []string{
		"Service.Request",
		"Service.Request.Callback",
		"Service.Webhook",
	}, pathStrings(cat.Paths(Response)))
	assert.Equal(t, 3, cat.AncestorCount(Response))
	assert.Equal(t, 3, cat.UnwindDepth(Response))

	for _, p := range cat.Paths(Link) {
		assert.Equal(t, Response, p[len(p)-1])
	}
	assert.Equal(t, 4, cat.AncestorCount(Link))
}

func TestDefault_RootAndSimpleKinds(t *testing.T) {
	cat := Default()

	assert.Equal(t, []string{""}, pathStrings(cat.Paths(Service)))
	assert.Equal(t, 0, cat.AncestorCount(Service))
	assert.Equal(t, 0, cat.UnwindDepth(Service))
	assert.Equal(t, 1, cat.UnwindDepth(Request))
	assert.Equal(t, []string{"$Service"}, cat.GatherExpression(Service).Paths)

	gather := cat.GatherExpression(Request)
	assert.False(t, gather.IsConcat())
	data, err := json.Marshal(gather)
	require.NoError(t, err)
	assert.Equal(t, `"$Service.Request"`, string(data))
}

func TestDefault_SelfRecursiveKinds(t *testing.T) {
	cat := Default()

	for _, k := range []Kind{Property, Item} {
		assert.Empty(t, cat.Paths(k))
		assert.Equal(t, cat.AncestorCount(Schema), cat.AncestorCount(k))
		assert.Equal(t, cat.GatherExpression(Schema).Paths, cat.GatherExpression(k).Paths)
	}

	// Header hangs below Property, so its discovery passes the unrolling budget
	for _, p := range cat.Paths(Header) {
		props := 0
		for _, k := range p {
			if k == Property {
				props++
			}
		}
		assert.Less(t, props, MaxPropertyUnrolling, "path %s", p)
	}
}

func TestGatherExpression_Concat(t *testing.T) {
	expr := Default().GatherExpression(Response)
	require.True(t, expr.IsConcat())

	data, err := json.Marshal(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$concatArrays": [
		"$Service.Request.Response",
		"$Service.Request.Callback.Response",
		"$Service.Webhook.Response"
	]}`, string(data))
}

func TestContains(t *testing.T) {
	cat := Default()

	children, ok := cat.Contains(Service)
	require.True(t, ok)
	assert.Equal(t, []Kind{Request, Tag, Webhook}, children)

	_, ok = cat.Contains(SecurityScope)
	assert.False(t, ok)

	assert.True(t, cat.CanContain(Request, Response))
	assert.True(t, cat.CanContain(Property, Property))
	assert.False(t, cat.CanContain(Response, Request))
	assert.Len(t, cat.Edges(), 42)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultFields(), []Edge{{Service, Request}, {Service, Request}})
	assert.ErrorIs(t, err, ErrInvalidEdge)

	_, err = New(DefaultFields(), []Edge{{Service, Kind(99)}})
	assert.ErrorIs(t, err, ErrInvalidEdge)

	_, err = ParseEdge("Service")
	assert.ErrorIs(t, err, ErrInvalidEdge)

	e, err := ParseEdge("Request.Response")
	require.NoError(t, err)
	assert.Equal(t, Edge{Request, Response}, e)
}

func TestNew_CustomGraph(t *testing.T) {
	cat, err := New(FieldCatalog{}, []Edge{
		{Service, Request},
		{Request, Property},
		{Property, Property},
		{Property, Header},
	})
	require.NoError(t, err)

	// Header through Property, and Property through itself once
	assert.Equal(t, []string{"Service.Request.Property"}, pathStrings(cat.Paths(Header)))
	assert.Same(t, Default(), Default())
}

func TestFields(t *testing.T) {
	fc := DefaultFields()

	typ, ok := fc.FieldType(Response, "statusCode")
	require.True(t, ok)
	assert.Equal(t, NumberType|StringType, typ)

	assert.True(t, fc.Allows(Response, "statusCode", document.Int(200)))
	assert.True(t, fc.Allows(Response, "statusCode", document.String("default")))
	assert.False(t, fc.Allows(Response, "statusCode", document.Bool(true)))

	assert.True(t, fc.Allows(Request, "tags", document.ArrayOf(document.String("pets"))))
	assert.False(t, fc.Allows(Request, "tags", document.ArrayOf(document.Int(1))))
	assert.False(t, fc.Allows(Request, "method", document.ArrayOf(document.String("get"))))

	assert.True(t, fc.Allows(Schema, "x-anything", document.ObjectValue(nil)))
	assert.False(t, fc.Allows(Schema, "unknown", document.String("v")))

	names := fc.Fields(SecurityScope)
	assert.Equal(t, []string{"description", "name"}, names)
	assert.Equal(t, "string|number", (StringType | NumberType).String())
}

func TestRecursiveGatherFunction(t *testing.T) {
	fn, err := RecursiveGatherFunction(Property)
	require.NoError(t, err)
	assert.Contains(t, fn, "res.push(obj.Property[i])")
	assert.Contains(t, fn, "rec(obj.Item[j])")

	_, err = RecursiveGatherFunction(Schema)
	assert.Error(t, err)
}

func TestIndexPaths(t *testing.T) {
	paths := IndexPaths()
	assert.Len(t, paths, 49)
	assert.Equal(t, "Service.Request.method", paths[0])
	assert.Contains(t, paths, "Service.Request.Response.Header.Schema.Item.type")
	assert.Contains(t, paths, "Service.Request.Parameter.Schema.Property.name")
}

func TestUnwindDepth_IsLongestAncestorCount(t *testing.T) {
	cat := Default()
	for _, kind := range Kinds() {
		longest := 0
		paths := cat.Paths(kind)
		if kind.SelfRecursive() {
			paths = cat.Paths(Schema)
		}
		for _, p := range paths {
			if len(p) > longest {
				longest = len(p)
			}
		}
		assert.Equal(t, longest, cat.UnwindDepth(kind), kind.String())
		assert.Equal(t, cat.AncestorCount(kind), cat.UnwindDepth(kind), kind.String())
	}
	assert.Equal(t, cat.UnwindDepth(Schema), cat.UnwindDepth(Property))
	assert.Equal(t, cat.UnwindDepth(Schema), cat.UnwindDepth(Item))
}

func TestDescribe(t *testing.T) {
	infos := Default().Describe()
	require.Len(t, infos, 18)
	assert.Equal(t, Service, infos[0].Kind)

	data, err := json.Marshal(infos[Response])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"Response"`)
	assert.Contains(t, string(data), `"unwindDepth":3`)
	assert.Contains(t, string(data), `"statusCode":"string|number"`)
}
