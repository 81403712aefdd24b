// Package refs resolves local "$ref" references inside a single description.
package refs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/document"
)

var (
	// ErrUnsupportedReference is returned for references outside the current document
	ErrUnsupportedReference = errors.New("unsupported reference")
	// ErrBrokenReference is returned when a reference path does not exist
	ErrBrokenReference = errors.New("broken reference")
	// ErrReferenceCycle is returned when a chain of reference wrappers loops
	ErrReferenceCycle = errors.New("reference cycle")
)

// Error describes a failed resolution
type Error struct {
	Kind error
	Ref  string
	// Chain lists the references followed before the failure, if any
	Chain []string
}

func (e *Error) Error() string {
	if len(e.Chain) > 0 {
		return fmt.Sprintf("%v: %s (via %s)", e.Kind, e.Ref, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Ref)
}

// Unwrap allows errors.Is against the sentinel kinds
func (e *Error) Unwrap() error { return e.Kind }

// RefKey is the keyword marking a reference wrapper
const RefKey = "$ref"

// Resolver resolves references against one root document. It never mutates the
// root and is safe for concurrent use.
type Resolver struct {
	root *document.Object
}

// NewResolver creates a resolver for root
func NewResolver(root *document.Object) *Resolver {
	return &Resolver{root: root}
}

// IsReference reports whether obj is a reference wrapper
func IsReference(obj *document.Object) bool {
	return obj.Has(RefKey)
}

// ResolveString returns an independent copy of the object the reference points
// to. Only same-document references ("#/...") are supported.
func (r *Resolver) ResolveString(ref string) (*document.Object, error) {
	segments := strings.Split(ref, "/")
	if segments[0] != "#" {
		return nil, &Error{Kind: ErrUnsupportedReference, Ref: ref}
	}
	// trailing slashes are ignored; empty segments inside the pointer are not
	for len(segments) > 1 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}

	cur := r.root
	for _, seg := range segments[1:] {
		cur = cur.ObjectAt(unescape(seg))
		if cur == nil {
			return nil, &Error{Kind: ErrBrokenReference, Ref: ref}
		}
	}
	return cur.Clone(), nil
}

// Resolve follows a reference wrapper to its target. The wrapper's description
// and summary override the target's, and the result is resolved again while it
// is itself a wrapper. A value that is not a wrapper is returned unchanged.
func (r *Resolver) Resolve(obj *document.Object) (*document.Object, error) {
	if obj == nil || !IsReference(obj) {
		return obj, nil
	}

	var chain []string
	seen := make(map[string]bool)
	cur := obj
	for IsReference(cur) {
		v, _ := cur.Get(RefKey)
		ref, ok := v.AsString()
		if !ok {
			return nil, &Error{Kind: ErrBrokenReference, Ref: v.String(), Chain: chain}
		}
		if seen[ref] {
			return nil, &Error{Kind: ErrReferenceCycle, Ref: ref, Chain: chain}
		}
		seen[ref] = true
		chain = append(chain, ref)

		target, err := r.ResolveString(ref)
		if err != nil {
			var rerr *Error
			if errors.As(err, &rerr) && len(chain) > 1 {
				rerr.Chain = chain[:len(chain)-1]
			}
			return nil, err
		}
		for _, key := range []string{"description", "summary"} {
			if val, ok := cur.Get(key); ok {
				target.Set(key, val.Clone())
			}
		}
		cur = target
	}
	return cur, nil
}

// unescape decodes a JSON pointer segment
func unescape(seg string) string {
	if !strings.Contains(seg, "~") {
		return seg
	}
	seg = strings.ReplaceAll(seg, "~1", "/")
	return strings.ReplaceAll(seg, "~0", "~")
}

// Escape encodes a key for use as a JSON pointer segment
func Escape(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	return strings.ReplaceAll(key, "/", "~1")
}
