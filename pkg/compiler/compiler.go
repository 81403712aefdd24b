// Package compiler turns an OpenAPI description into its compiled form: a tree
// of normalized records rooted at {"Service": [...]} in which every schema has
// been expanded into the concrete structural variants its composition keywords
// allow.
package compiler

import (
	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/merge"
	"github.com/platinummonkey/apicatalog/pkg/refs"
)

const (
	// DefaultMaxVariants bounds the variants a single schema may expand into
	DefaultMaxVariants = 10000
	// DefaultMaxDepth bounds schema nesting, which also stops self-referencing
	// schemas from expanding forever
	DefaultMaxDepth = 64
)

// Limits bounds the work of one compilation
type Limits struct {
	// MaxVariants caps the variants of any schema composition. Zero disables
	// the cap.
	MaxVariants int
	// MaxDepth caps schema nesting. Zero disables the cap.
	MaxDepth int
}

// DefaultLimits returns the limits used by Compile
func DefaultLimits() Limits {
	return Limits{MaxVariants: DefaultMaxVariants, MaxDepth: DefaultMaxDepth}
}

// Stats counts what a compilation produced
type Stats struct {
	Requests     int `json:"requests"`
	Schemas      int `json:"schemas"`
	Variants     int `json:"variants"`
	LargestSet   int `json:"largestSet"`
	Webhooks     int `json:"webhooks"`
	Tags         int `json:"tags"`
	MediaTypes   int `json:"mediaTypes"`
	SecurityReqs int `json:"securityRequirements"`
}

// Compiler compiles one description. It holds per-document state and must not
// be shared between goroutines.
type Compiler struct {
	root     *document.Object
	resolver *refs.Resolver
	budget   merge.Budget
	maxDepth int
	depth    int
	stats    Stats
}

// New creates a compiler for the decoded description root
func New(root *document.Object, limits Limits) *Compiler {
	return &Compiler{
		root:     root,
		resolver: refs.NewResolver(root),
		budget:   merge.Budget{Max: limits.MaxVariants},
		maxDepth: limits.MaxDepth,
	}
}

// Compile decodes raw JSON or YAML and compiles it with the default limits
func Compile(raw []byte) (*document.Object, error) {
	doc, err := document.Decode(raw)
	if err != nil {
		return nil, decodeError(err)
	}
	return CompileDocument(doc)
}

// CompileDocument compiles an already decoded description with the default
// limits
func CompileDocument(doc *document.Object) (*document.Object, error) {
	return New(doc, DefaultLimits()).Compile()
}

// Stats returns the counters of the last Compile call
func (c *Compiler) Stats() Stats { return c.stats }

// resolve follows a reference wrapper found at path
func (c *Compiler) resolve(obj *document.Object, path string) (*document.Object, error) {
	resolved, err := c.resolver.Resolve(obj)
	if err != nil {
		return nil, refError(path, err)
	}
	return resolved, nil
}

// resolveValue resolves an element that must be an object
func (c *Compiler) resolveValue(v document.Value, path string) (*document.Object, error) {
	obj, err := asObject(v, path)
	if err != nil {
		return nil, err
	}
	return c.resolve(obj, path)
}
