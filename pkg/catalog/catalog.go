// Package catalog holds the precomputed model of how compiled entity kinds nest
// inside one another: containment, reachability paths from the document root,
// array unwind depth and gather expressions for the query layer.
//
// A Catalog is immutable once built and safe for concurrent use.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MaxPropertyUnrolling bounds how many times path discovery walks through a
// Property parent. Deeper nesting is reached at query time through
// RecursiveGatherFunction instead of static paths.
const MaxPropertyUnrolling = 2

// ErrInvalidEdge is returned when a containment edge names an unknown kind or
// is declared twice
var ErrInvalidEdge = errors.New("invalid containment edge")

// Edge declares that Parent records hold an array of Child records
type Edge struct {
	Parent Kind
	Child  Kind
}

func (e Edge) String() string { return e.Parent.String() + "." + e.Child.String() }

// ParseEdge parses the "Parent.Child" form
func ParseEdge(s string) (Edge, error) {
	parent, child, ok := strings.Cut(s, ".")
	if !ok {
		return Edge{}, fmt.Errorf("%w: %q", ErrInvalidEdge, s)
	}
	p, err := ParseKind(parent)
	if err != nil {
		return Edge{}, fmt.Errorf("%w: %v", ErrInvalidEdge, err)
	}
	c, err := ParseKind(child)
	if err != nil {
		return Edge{}, fmt.Errorf("%w: %v", ErrInvalidEdge, err)
	}
	return Edge{Parent: p, Child: c}, nil
}

// DefaultEdges returns the containment graph of the compiled description format
func DefaultEdges() []Edge {
	return []Edge{
		{Service, Request},
		{Service, Tag},
		{Service, Webhook},
		{Request, Server},
		{Server, ServerVariable},
		{Request, Callback},
		{Request, Schema},
		{Schema, Property},
		{Schema, Item},
		{Property, Property},
		{Property, Item},
		{Item, Property},
		{Item, Item},
		{Property, Header},
		{Request, Example},
		{Request, Parameter},
		{Parameter, Schema},
		{Parameter, Example},
		{Request, Security},
		{Security, SecurityScope},
		{Request, Response},
		{Response, Link},
		{Link, ServerVariable},
		{Link, LinkParameter},
		{Response, Header},
		{Header, Schema},
		{Header, Example},
		{Response, Schema},
		{Response, Example},
		{Callback, Server},
		{Callback, Schema},
		{Callback, Example},
		{Callback, Parameter},
		{Callback, Security},
		{Callback, Response},
		{Webhook, Server},
		{Webhook, Schema},
		{Webhook, Example},
		{Webhook, Parameter},
		{Webhook, Security},
		{Webhook, Response},
		{Tag, Schema},
	}
}

// Path is the sequence of ancestor kinds leading from the root to a kind. The
// root kind itself has the empty path.
type Path []Kind

// String joins the ancestors with dots
func (p Path) String() string {
	names := make([]string, len(p))
	for i, k := range p {
		names[i] = k.String()
	}
	return strings.Join(names, ".")
}

// FieldPath returns the dotted field path of target below p
func (p Path) FieldPath(target Kind) string {
	if len(p) == 0 {
		return target.String()
	}
	return p.String() + "." + target.String()
}

type entry struct {
	contains  []Kind
	paths     []Path
	ancestors int
	gather    Expression
}

// Catalog is the precomputed containment model
type Catalog struct {
	fields  FieldCatalog
	edges   []Edge
	allowed map[Edge]bool
	entries [kindCount]entry
}

// New builds a catalog from a field catalog and a containment graph. Edges are
// processed in the given order, which fixes the order of discovered paths.
func New(fields FieldCatalog, edges []Edge) (*Catalog, error) {
	c := &Catalog{
		fields:  fields,
		edges:   make([]Edge, 0, len(edges)),
		allowed: make(map[Edge]bool, len(edges)),
	}
	for k := range fields {
		if !k.Valid() {
			return nil, fmt.Errorf("field catalog: unknown kind %d", uint8(k))
		}
	}
	for _, e := range edges {
		if !e.Parent.Valid() || !e.Child.Valid() {
			return nil, fmt.Errorf("%w: %d.%d", ErrInvalidEdge, uint8(e.Parent), uint8(e.Child))
		}
		if c.allowed[e] {
			return nil, fmt.Errorf("%w: %s declared twice", ErrInvalidEdge, e)
		}
		c.allowed[e] = true
		c.edges = append(c.edges, e)
		c.entries[e.Parent].contains = append(c.entries[e.Parent].contains, e.Child)
	}

	schemaPaths := c.discover(Schema)
	for _, k := range Kinds() {
		ent := &c.entries[k]
		reach, target := schemaPaths, Schema
		if !k.SelfRecursive() {
			ent.paths = c.discover(k)
			reach, target = ent.paths, k
		}
		for _, p := range reach {
			if len(p) > ent.ancestors {
				ent.ancestors = len(p)
			}
		}
		exprs := make([]string, len(reach))
		for i, p := range reach {
			exprs[i] = "$" + p.FieldPath(target)
		}
		ent.gather = Expression{Paths: exprs}
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the shared catalog of the compiled description format. It is
// built on first use.
func Default() *Catalog {
	defaultOnce.Do(func() {
		cat, err := New(DefaultFields(), DefaultEdges())
		if err != nil {
			panic(fmt.Sprintf("catalog: default graph is invalid: %v", err))
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}

// discover walks the containment graph backward from kind. Parents of kind
// Item are skipped and every Property parent consumes one unit of the
// unrolling budget.
func (c *Catalog) discover(kind Kind) []Path {
	paths, _ := c.walk(kind, 0)
	return paths
}

func (c *Catalog) walk(kind Kind, unrolled int) ([]Path, bool) {
	if unrolled >= MaxPropertyUnrolling {
		return nil, false
	}
	var result []Path
	for _, e := range c.edges {
		if e.Child != kind || e.Parent == Item {
			continue
		}
		next := unrolled
		if e.Parent == Property {
			next++
		}
		sub, ok := c.walk(e.Parent, next)
		if !ok {
			continue
		}
		for _, p := range sub {
			path := make(Path, len(p), len(p)+1)
			copy(path, p)
			result = append(result, append(path, e.Parent))
		}
	}
	if len(result) == 0 {
		result = []Path{{}}
	}
	return result, true
}

// Fields returns the sorted field names of kind
func (c *Catalog) Fields(kind Kind) []string { return c.fields.Fields(kind) }

// FieldType returns the type set of a field of kind
func (c *Catalog) FieldType(kind Kind, name string) (FieldType, bool) {
	return c.fields.FieldType(kind, name)
}

// FieldCatalog returns the field catalog the catalog was built with
func (c *Catalog) FieldCatalog() FieldCatalog { return c.fields }

// Edges returns the containment graph in declaration order
func (c *Catalog) Edges() []Edge {
	out := make([]Edge, len(c.edges))
	copy(out, c.edges)
	return out
}

// Paths returns every ancestor path reaching kind from the root. Property and
// Item have no paths of their own; their occurrences are relative to Schema.
func (c *Catalog) Paths(kind Kind) []Path {
	if !kind.Valid() {
		return nil
	}
	src := c.entries[kind].paths
	out := make([]Path, len(src))
	for i, p := range src {
		out[i] = append(Path(nil), p...)
	}
	return out
}

// AncestorCount returns the length of the longest path reaching kind. Property
// and Item use the paths of Schema.
func (c *Catalog) AncestorCount(kind Kind) int {
	if !kind.Valid() {
		return 0
	}
	return c.entries[kind].ancestors
}

// UnwindDepth returns how many array levels a pipeline unwinds to reach kind:
// the ancestor count of its longest path. Property and Item report Schema's.
func (c *Catalog) UnwindDepth(kind Kind) int {
	if !kind.Valid() {
		return 0
	}
	return c.entries[kind].ancestors
}

// Contains returns the kinds held directly by kind. The boolean is false for
// leaf kinds.
func (c *Catalog) Contains(kind Kind) ([]Kind, bool) {
	if !kind.Valid() {
		return nil, false
	}
	children := c.entries[kind].contains
	if len(children) == 0 {
		return nil, false
	}
	return append([]Kind(nil), children...), true
}

// CanContain reports whether child records may nest directly under parent
func (c *Catalog) CanContain(parent, child Kind) bool {
	return c.allowed[Edge{Parent: parent, Child: child}]
}

// GatherExpression returns the expression collecting every occurrence of kind
// into one sequence
func (c *Catalog) GatherExpression(kind Kind) Expression {
	if !kind.Valid() {
		return Expression{}
	}
	return Expression{Paths: append([]string(nil), c.entries[kind].gather.Paths...)}
}

// Expression gathers array fields for an aggregation pipeline. A single path is
// a plain field reference; several paths are concatenated.
type Expression struct {
	Paths []string
}

// IsConcat reports whether the expression concatenates several paths
func (e Expression) IsConcat() bool { return len(e.Paths) > 1 }

// MarshalJSON produces "$a.b" or {"$concatArrays": ["$a.b", ...]}
func (e Expression) MarshalJSON() ([]byte, error) {
	switch len(e.Paths) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(e.Paths[0])
	default:
		return json.Marshal(map[string][]string{"$concatArrays": e.Paths})
	}
}

func (e Expression) String() string {
	data, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", e.Paths)
	}
	return string(data)
}
