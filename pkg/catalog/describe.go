package catalog

import "fmt"

// recursiveGather returns every record stored under the first key at any
// nesting depth, also descending through the second key.
const recursiveGather = `function rec(obj) {
  var res = [];
  if (obj.hasOwnProperty("%[1]s")) {
    for (var i = 0; i < obj.%[1]s.length; i++) {
      res.push(obj.%[1]s[i]);
      res = res.concat(rec(obj.%[1]s[i]));
    }
  }
  if (obj.hasOwnProperty("%[2]s")) {
    for (var j = 0; j < obj.%[2]s.length; j++) {
      res = res.concat(rec(obj.%[2]s[j]));
    }
  }
  return res;
}`

// RecursiveGatherFunction returns the body of a server-side function that
// collects every Property or Item record below a Schema record, at any depth.
// The query layer uses it in a $function stage because static paths stop after
// MaxPropertyUnrolling levels.
func RecursiveGatherFunction(kind Kind) (string, error) {
	switch kind {
	case Property:
		return fmt.Sprintf(recursiveGather, Property, Item), nil
	case Item:
		return fmt.Sprintf(recursiveGather, Item, Property), nil
	default:
		return "", fmt.Errorf("kind %s is not self-recursive", kind)
	}
}

var (
	indexedRequestFields = []string{
		"Service.Request.method",
		"Service.Request.path",
		"Service.Request.contentType",
		"Service.Request.x-operationType",
		"Service.Request.Parameter.name",
		"Service.Request.Response.statusCode",
		"Service.Request.Response.contentType",
		"Service.Request.Response.Header.name",
		"Service.Request.Security.type",
	}
	indexedSchemaRoots = []string{
		"Service.Request.Schema",
		"Service.Request.Parameter.Schema",
		"Service.Request.Response.Schema",
		"Service.Request.Response.Header.Schema",
	}
)

// IndexPaths returns the dotted field paths a storage backend should index on
// compiled descriptions
func IndexPaths() []string {
	out := append([]string(nil), indexedRequestFields...)
	levels := []struct {
		segment string
		fields  []string
	}{
		{"", []string{"x-refersTo", "x-kindOf", "type"}},
		{".Property", []string{"name", "x-refersTo", "x-kindOf", "type"}},
		{".Item", []string{"x-refersTo", "x-kindOf", "type"}},
	}
	for _, lvl := range levels {
		for _, field := range lvl.fields {
			for _, root := range indexedSchemaRoots {
				out = append(out, root+lvl.segment+"."+field)
			}
		}
	}
	return out
}

// KindInfo is the serializable summary of one kind
type KindInfo struct {
	Kind          Kind              `json:"kind"`
	Contains      []Kind            `json:"contains,omitempty"`
	Paths         []string          `json:"paths"`
	AncestorCount int               `json:"ancestorCount"`
	UnwindDepth   int               `json:"unwindDepth"`
	Gather        Expression        `json:"gather"`
	Fields        map[string]string `json:"fields"`
}

// DescribeKind summarizes a single kind
func (c *Catalog) DescribeKind(kind Kind) KindInfo {
	contains, _ := c.Contains(kind)
	paths := c.Paths(kind)
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = p.String()
	}
	fields := make(map[string]string)
	for _, f := range c.Fields(kind) {
		t, _ := c.FieldType(kind, f)
		fields[f] = t.String()
	}
	return KindInfo{
		Kind:          kind,
		Contains:      contains,
		Paths:         names,
		AncestorCount: c.AncestorCount(kind),
		UnwindDepth:   c.UnwindDepth(kind),
		Gather:        c.GatherExpression(kind),
		Fields:        fields,
	}
}

// Describe summarizes every kind in declaration order
func (c *Catalog) Describe() []KindInfo {
	out := make([]KindInfo, 0, kindCount)
	for _, k := range Kinds() {
		out = append(out, c.DescribeKind(k))
	}
	return out
}
