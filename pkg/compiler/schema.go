package compiler

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/merge"
)

// reservedSchemaKeys are handled by composition and never copied verbatim
var reservedSchemaKeys = []string{
	"properties", "patternProperties", "additionalProperties", "unevaluatedProperties",
	"prefixItems", "items", "contains", "unevaluatedItems",
	"if", "then", "else", "dependentSchemas",
	"allOf", "anyOf", "oneOf", "not",
	"discriminator", "x-mapsTo", "externalDocs", "xml",
}

// ComposeSchema expands the schema at path into its structural variants.
// encoding holds the Encoding objects of a media type and is only given for
// the top-level schema of a content entry. A non-empty name is recorded on
// every variant.
func (c *Compiler) ComposeSchema(node, encoding *document.Object, name, path string) ([]*document.Object, error) {
	if c.maxDepth > 0 && c.depth >= c.maxDepth {
		return nil, fmt.Errorf("%w: schema nesting at %s exceeds depth %d", ErrTooComplex, path, c.maxDepth)
	}
	c.depth++
	defer func() { c.depth-- }()

	schema, err := c.resolve(node, path)
	if err != nil {
		return nil, err
	}
	c.stats.Schemas++

	base, err := c.baseSchema(schema, name, path)
	if err != nil {
		return nil, err
	}
	variants := []*document.Object{base}

	for _, key := range []string{"properties", "patternProperties"} {
		props, err := objectField(schema, key, path)
		if err != nil {
			return nil, err
		}
		for _, propName := range props.Keys() {
			v, _ := props.Get(propName)
			if variants, err = c.multiplyValue(variants, v, propName, merge.PropertyKey, pointer(path, key, propName)); err != nil {
				return nil, err
			}
		}
	}

	if variants, err = c.multiplyOrFlag(variants, schema, "additionalProperties", merge.PropertyKey, path); err != nil {
		return nil, err
	}
	if variants, err = c.multiplyOrFlag(variants, schema, "unevaluatedProperties", merge.PropertyKey, path); err != nil {
		return nil, err
	}

	prefix, _, err := arrayField(schema, "prefixItems", path)
	if err != nil {
		return nil, err
	}
	for i, item := range prefix {
		if variants, err = c.multiplyValue(variants, item, "", merge.ItemKey, pointer(path, "prefixItems", itoa(i))); err != nil {
			return nil, err
		}
	}
	for _, key := range []string{"items", "contains", "unevaluatedItems"} {
		if variants, err = c.multiplyOrFlag(variants, schema, key, merge.ItemKey, path); err != nil {
			return nil, err
		}
	}

	if variants, err = c.conditional(variants, schema, path); err != nil {
		return nil, err
	}

	deps, err := objectField(schema, "dependentSchemas", path)
	if err != nil {
		return nil, err
	}
	for _, key := range deps.Keys() {
		v, _ := deps.Get(key)
		if variants, err = c.foldValue(variants, v, pointer(path, "dependentSchemas", key)); err != nil {
			return nil, err
		}
	}

	// anyOf folds exactly like allOf
	for _, key := range []string{"allOf", "anyOf"} {
		members, _, err := arrayField(schema, key, path)
		if err != nil {
			return nil, err
		}
		for i, m := range members {
			if variants, err = c.foldValue(variants, m, pointer(path, key, itoa(i))); err != nil {
				return nil, err
			}
		}
	}

	oneOf, _, err := arrayField(schema, "oneOf", path)
	if err != nil {
		return nil, err
	}
	if len(oneOf) > 0 {
		var pool []*document.Object
		for i, m := range oneOf {
			sub, err := c.composeValue(m, "", pointer(path, "oneOf", itoa(i)))
			if err != nil {
				return nil, err
			}
			pool = append(pool, sub...)
		}
		if err := c.budget.CheckProduct(len(variants), len(pool)); err != nil {
			return nil, err
		}
		variants = merge.Fold(variants, pool)
	}

	if encoding != nil {
		if err := c.applyEncoding(variants, encoding, path); err != nil {
			return nil, err
		}
	}

	c.stats.Variants += len(variants)
	if len(variants) > c.stats.LargestSet {
		c.stats.LargestSet = len(variants)
	}
	return variants, nil
}

// baseSchema copies every non-composition field of schema and flattens the
// xml, externalDocs and x-mapsTo hints
func (c *Compiler) baseSchema(schema *document.Object, name, path string) (*document.Object, error) {
	base := schema.Clone()
	for _, k := range reservedSchemaKeys {
		base.Delete(k)
	}
	if name != "" {
		base.SetString("name", name)
	}

	xml, err := objectField(schema, "xml", path)
	if err != nil {
		return nil, err
	}
	if xml != nil {
		copyAs(base, "xmlName", xml, "name")
		copyAs(base, "xmlNamespace", xml, "namespace")
		copyAs(base, "xmlPrefix", xml, "prefix")
		copyAs(base, "xmlWrapped", xml, "wrapped")
		base.SetBool("xmlAttribute", xml.BoolAt("attribute", false))
	}

	docs, err := objectField(schema, "externalDocs", path)
	if err != nil {
		return nil, err
	}
	applyExternalDocs(base, docs)

	if v, ok := schema.Get("x-mapsTo"); ok {
		ref, ok := v.AsString()
		if !ok {
			return nil, malformed(pointer(path, "x-mapsTo"), "expected reference string, got %s", v.Type())
		}
		target, err := c.resolver.ResolveString(ref)
		if err != nil {
			return nil, refError(pointer(path, "x-mapsTo"), err)
		}
		copyFields(base, target, "x-refersTo", "x-kindOf")
	}

	if v, ok := schema.Get("discriminator"); ok {
		disc, err := asObject(v, pointer(path, "discriminator"))
		if err != nil {
			return nil, err
		}
		if _, ok := disc.StringAt("propertyName"); !ok {
			return nil, malformed(pointer(path, "discriminator"), "discriminator requires propertyName")
		}
	}
	return base, nil
}

// composeValue composes a sub-schema that must be an object
func (c *Compiler) composeValue(v document.Value, name, path string) ([]*document.Object, error) {
	obj, err := asObject(v, path)
	if err != nil {
		return nil, err
	}
	return c.ComposeSchema(obj, nil, name, path)
}

// multiplyValue takes the Cartesian product of variants with the variants of
// the sub-schema v, nesting each under label
func (c *Compiler) multiplyValue(variants []*document.Object, v document.Value, name, label, path string) ([]*document.Object, error) {
	sub, err := c.composeValue(v, name, path)
	if err != nil {
		return nil, err
	}
	if err := c.budget.CheckProduct(len(variants), len(sub)); err != nil {
		return nil, err
	}
	return merge.Multiply(variants, sub, label), nil
}

// multiplyOrFlag multiplies by the sub-schema under key, or records a boolean
// schema as a plain field on every variant
func (c *Compiler) multiplyOrFlag(variants []*document.Object, schema *document.Object, key, label, path string) ([]*document.Object, error) {
	v, ok := schema.Get(key)
	if !ok {
		return variants, nil
	}
	if b, isBool := v.AsBool(); isBool {
		for _, variant := range variants {
			variant.SetBool(key, b)
		}
		return variants, nil
	}
	return c.multiplyValue(variants, v, "", label, pointer(path, key))
}

// foldValue accumulates the variants of the sub-schema v into variants
func (c *Compiler) foldValue(variants []*document.Object, v document.Value, path string) ([]*document.Object, error) {
	sub, err := c.composeValue(v, "", path)
	if err != nil {
		return nil, err
	}
	if err := c.budget.CheckProduct(len(variants), len(sub)); err != nil {
		return nil, err
	}
	return merge.Fold(variants, sub), nil
}

// conditional keeps the if/then branch and the else branch as separate
// alternatives. The else branch starts from the variants as they were before
// the conditional and is kept even when no else schema is declared.
func (c *Compiler) conditional(variants []*document.Object, schema *document.Object, path string) ([]*document.Object, error) {
	ifSchema, ok := schema.Get("if")
	if !ok {
		return variants, nil
	}
	alternative := document.CloneAll(variants)

	var err error
	if variants, err = c.foldValue(variants, ifSchema, pointer(path, "if")); err != nil {
		return nil, err
	}
	if then, ok := schema.Get("then"); ok {
		if variants, err = c.foldValue(variants, then, pointer(path, "then")); err != nil {
			return nil, err
		}
	}
	if els, ok := schema.Get("else"); ok {
		if alternative, err = c.foldValue(alternative, els, pointer(path, "else")); err != nil {
			return nil, err
		}
	}
	variants = append(variants, alternative...)
	if err := c.budget.Check(len(variants)); err != nil {
		return nil, err
	}
	return variants, nil
}

// applyEncoding decorates top-level properties with their Encoding object.
// path points at the schema; the encoding map is its sibling.
func (c *Compiler) applyEncoding(variants []*document.Object, encoding *document.Object, path string) error {
	path = strings.TrimSuffix(path, "/schema")
	for _, variant := range variants {
		for _, prop := range variant.ObjectsAt(merge.PropertyKey) {
			name, _ := prop.StringAt("name")
			v, ok := encoding.Get(name)
			if !ok {
				continue
			}
			enc, ok := v.AsObject()
			if !ok {
				continue
			}
			copyFields(prop, enc, "contentType", "style", "explode")
			headers, err := objectField(enc, "headers", pointer(path, "encoding", name))
			if err != nil {
				return err
			}
			if headers != nil {
				built, err := c.buildHeaders(headers, pointer(path, "encoding", name, "headers"))
				if err != nil {
					return err
				}
				prop.SetObjects("Header", built)
			}
			prop.SetBool("allowReserved", enc.BoolAt("allowReserved", false))
			merge.Extensions(prop, enc)
		}
	}
	return nil
}
