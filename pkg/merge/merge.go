// Package merge implements the two record merge rules used while compiling a
// description, plus the variant multiplication helpers built on them.
//
// Extensions (private-use "x-" fields) accumulate without any deduplication.
// Structural fields accumulate with scalar-only deduplication. The two rules
// must not be mixed: callers pick the one matching the field they merge.
package merge

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/document"
)

const (
	// ExtensionPrefix marks private-use fields
	ExtensionPrefix = "x-"
	// PropertyKey is the child array holding nested property records
	PropertyKey = "Property"
	// ItemKey is the child array holding nested array item records
	ItemKey = "Item"
)

// ErrTooComplex is returned when composition would exceed the variant budget.
// It is the same error decoding returns for oversized alias expansion.
var ErrTooComplex = document.ErrTooComplex

// IsExtension reports whether key is a private-use field
func IsExtension(key string) bool {
	return strings.HasPrefix(key, ExtensionPrefix)
}

// Extensions copies every extension field of src into dest. Existing values
// are turned into arrays and grow on every merge; nothing is deduplicated.
func Extensions(dest, src *document.Object) {
	src.Range(func(key string, sv document.Value) bool {
		if !IsExtension(key) {
			return true
		}
		dv, ok := dest.Get(key)
		if !ok {
			dest.Set(key, sv.Clone())
			return true
		}
		switch {
		case dv.IsArray() && sv.IsArray():
			elems, _ := sv.AsArray()
			dest.Set(key, dv.Append(cloneValues(elems)...))
		case dv.IsArray():
			dest.Set(key, dv.Append(sv.Clone()))
		case sv.IsArray():
			dest.Set(key, sv.Clone().Append(dv))
		default:
			dest.Set(key, document.ArrayOf(dv, sv.Clone()))
		}
		return true
	})
}

// Accumulate folds every field of src into dest. Unequal scalars become a two
// element array, equal scalars are left alone, and objects are never equal to
// anything. Property children are matched by name and accumulated recursively;
// children with an unknown name are appended.
func Accumulate(dest, src *document.Object) {
	src.Range(func(key string, sv document.Value) bool {
		dv, ok := dest.Get(key)
		if !ok {
			dest.Set(key, sv.Clone())
			return true
		}

		switch {
		case dv.IsArray() && sv.IsArray():
			elems, _ := sv.AsArray()
			if key == PropertyKey {
				accumulateProperties(dest, elems)
				return true
			}
			for _, e := range elems {
				if !dv.Contains(e) {
					dv = dv.Append(e.Clone())
				}
			}
			dest.Set(key, dv)
		case dv.IsArray():
			if !dv.Contains(sv) {
				dest.Set(key, dv.Append(sv.Clone()))
			}
		case sv.IsArray():
			if !sv.Contains(dv) {
				dest.Set(key, sv.Clone().Append(dv))
			}
		case !document.ScalarEqual(dv, sv):
			dest.Set(key, document.ArrayOf(dv, sv.Clone()))
		}
		return true
	})
}

func accumulateProperties(dest *document.Object, src []document.Value) {
	for _, e := range src {
		child, ok := e.AsObject()
		if !ok {
			continue
		}
		name, named := child.StringAt("name")
		matched := false
		if named {
			for _, existing := range dest.ObjectsAt(PropertyKey) {
				if n, ok := existing.StringAt("name"); ok && n == name {
					Accumulate(existing, child)
					matched = true
				}
			}
		}
		if !matched {
			dest.AppendObject(PropertyKey, child.Clone())
		}
	}
}

// Multiply returns the Cartesian product of variants and sub: for every
// sub-variant, a copy of each variant gets it appended under label. Copies for
// sub[0] come first, then sub[1] and so on. The first family reuses the input
// records. An empty sub leaves variants unchanged.
func Multiply(variants, sub []*document.Object, label string) []*document.Object {
	if len(sub) == 0 {
		return variants
	}
	out := make([]*document.Object, 0, len(variants)*len(sub))
	var base []*document.Object
	if len(sub) > 1 {
		base = document.CloneAll(variants)
	}
	for i, s := range sub {
		family := variants
		if i > 0 {
			family = document.CloneAll(base)
		}
		for _, v := range family {
			v.AppendObject(label, s.Clone())
		}
		out = append(out, family...)
	}
	return out
}

// Fold accumulates sub[0] into every variant in place, then for each further
// sub-variant appends a fresh copy of the original variants accumulated with
// it. A single sub-variant therefore never changes the variant count.
func Fold(variants, sub []*document.Object) []*document.Object {
	if len(sub) == 0 {
		return variants
	}
	var base []*document.Object
	if len(sub) > 1 {
		base = document.CloneAll(variants)
	}
	for _, v := range variants {
		Accumulate(v, sub[0])
	}
	for _, s := range sub[1:] {
		family := document.CloneAll(base)
		for _, v := range family {
			Accumulate(v, s)
		}
		variants = append(variants, family...)
	}
	return variants
}

// Budget bounds the number of variants a single composition may hold. A zero
// Max disables the check.
type Budget struct {
	Max int
}

// Check fails when n exceeds the budget
func (b Budget) Check(n int) error {
	if b.Max > 0 && n > b.Max {
		return fmt.Errorf("%w: %d variants exceeds limit of %d", ErrTooComplex, n, b.Max)
	}
	return nil
}

// CheckProduct fails when a*b exceeds the budget, without overflowing
func (b Budget) CheckProduct(a, c int) error {
	if b.Max <= 0 || a == 0 || c == 0 {
		return nil
	}
	if a > b.Max/c+1 {
		return fmt.Errorf("%w: %d x %d variants exceeds limit of %d", ErrTooComplex, a, c, b.Max)
	}
	return b.Check(a * c)
}

func cloneValues(vs []document.Value) []document.Value {
	out := make([]document.Value, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}
