// Package query holds the pieces a query compiler needs from the catalog: the
// join tree that validates declared joins against the containment graph and
// resolves each joined kind to its dotted path, the post-processing of result
// rows, and validation of stored description identifiers.
package query

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/apicatalog/pkg/catalog"
)

// ErrInvalidJoin is returned when a join is not allowed by the containment graph
// or refers to an unknown alias
var ErrInvalidJoin = errors.New("invalid join")

// JoinError describes a rejected join
type JoinError struct {
	Parent string
	Child  string
	Reason string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("%v %s -> %s: %s", ErrInvalidJoin, e.Parent, e.Child, e.Reason)
}

func (e *JoinError) Unwrap() error { return ErrInvalidJoin }

// Node is one joined kind
type Node struct {
	Alias    string
	Kind     catalog.Kind
	FullPath string
	Parent   *Node
	Children []*Node
}

// NewNode creates a detached node. An empty alias defaults to the kind name.
func NewNode(alias string, kind catalog.Kind) *Node {
	if alias == "" {
		alias = kind.String()
	}
	return &Node{Alias: alias, Kind: kind}
}

// ResolveFullPath sets the dotted kind path of n and all of its descendants.
// A parent's path must be final before its children's, so this runs top-down
// once the tree is complete.
func (n *Node) ResolveFullPath() {
	if n.Parent == nil {
		n.FullPath = n.Kind.String()
	} else {
		n.FullPath = n.Parent.FullPath + "." + n.Kind.String()
	}
	for _, c := range n.Children {
		c.ResolveFullPath()
	}
}

// Tree is the join tree of one query. It is not safe for concurrent use.
type Tree struct {
	cat     *catalog.Catalog
	root    *Node
	byAlias map[string]*Node
	order   []*Node
}

// NewTree starts a tree rooted at kind
func NewTree(cat *catalog.Catalog, kind catalog.Kind, alias string) (*Tree, error) {
	if !kind.Valid() {
		return nil, &JoinError{Parent: "", Child: kind.String(), Reason: "unknown kind"}
	}
	root := NewNode(alias, kind)
	return &Tree{
		cat:     cat,
		root:    root,
		byAlias: map[string]*Node{root.Alias: root},
		order:   []*Node{root},
	}, nil
}

// Root returns the root node
func (t *Tree) Root() *Node { return t.root }

// Join attaches kind below the node with parentAlias. The pair must be an edge
// of the containment graph and the alias must be unused.
func (t *Tree) Join(parentAlias string, kind catalog.Kind, alias string) (*Node, error) {
	parent, ok := t.byAlias[parentAlias]
	if !ok {
		return nil, &JoinError{Parent: parentAlias, Child: kind.String(), Reason: "unknown parent alias"}
	}
	if !t.cat.CanContain(parent.Kind, kind) {
		return nil, &JoinError{
			Parent: parent.Kind.String(),
			Child:  kind.String(),
			Reason: "not in the containment graph",
		}
	}
	child := NewNode(alias, kind)
	if _, dup := t.byAlias[child.Alias]; dup {
		return nil, &JoinError{Parent: parentAlias, Child: kind.String(), Reason: fmt.Sprintf("alias %q already used", child.Alias)}
	}

	child.Parent = parent
	parent.Children = append(parent.Children, child)
	t.byAlias[child.Alias] = child
	t.order = append(t.order, child)
	return child, nil
}

// Node returns the node with the given alias
func (t *Tree) Node(alias string) (*Node, bool) {
	n, ok := t.byAlias[alias]
	return n, ok
}

// Nodes returns the nodes in join order, root first
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, len(t.order))
	copy(out, t.order)
	return out
}

// Resolve finalizes every full path and returns them by alias
func (t *Tree) Resolve() map[string]string {
	t.root.ResolveFullPath()
	out := make(map[string]string, len(t.order))
	for _, n := range t.order {
		out[n.Alias] = n.FullPath
	}
	return out
}

// Step is what a pipeline generator needs to reach one joined kind
type Step struct {
	Alias       string             `json:"alias"`
	Kind        catalog.Kind       `json:"kind"`
	FullPath    string             `json:"fullPath"`
	UnwindDepth int                `json:"unwindDepth"`
	Gather      catalog.Expression `json:"gather"`
}

// Plan resolves the tree and returns one step per node in join order
func (t *Tree) Plan() []Step {
	t.Resolve()
	steps := make([]Step, 0, len(t.order))
	for _, n := range t.order {
		steps = append(steps, Step{
			Alias:       n.Alias,
			Kind:        n.Kind,
			FullPath:    n.FullPath,
			UnwindDepth: t.cat.UnwindDepth(n.Kind),
			Gather:      t.cat.GatherExpression(n.Kind),
		})
	}
	return steps
}

// JoinSpec is one declared join. Parent is the alias of an earlier node; it is
// ignored for the root.
type JoinSpec struct {
	Parent string `json:"parent,omitempty"`
	Kind   string `json:"kind"`
	Alias  string `json:"alias,omitempty"`
}

// BuildTree builds and validates the join tree declared by root and joins.
// Every edge is checked before any path is resolved.
func BuildTree(cat *catalog.Catalog, root JoinSpec, joins []JoinSpec) (*Tree, error) {
	rootKind, err := catalog.ParseKind(root.Kind)
	if err != nil {
		return nil, &JoinError{Child: root.Kind, Reason: err.Error()}
	}
	tree, err := NewTree(cat, rootKind, root.Alias)
	if err != nil {
		return nil, err
	}
	for _, j := range joins {
		kind, err := catalog.ParseKind(j.Kind)
		if err != nil {
			return nil, &JoinError{Parent: j.Parent, Child: j.Kind, Reason: err.Error()}
		}
		if _, err := tree.Join(j.Parent, kind, j.Alias); err != nil {
			return nil, err
		}
	}
	return tree, nil
}
