package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotObject is returned when a decoded document is not a mapping at the top level
	ErrNotObject = errors.New("document is not an object")
	// ErrTooComplex is returned when a document expands past a size budget
	ErrTooComplex = errors.New("description too complex")

	errTrailingData = errors.New("trailing data after document")
)

// MaxAliasNodes bounds the values produced by expanding YAML aliases. Each
// alias is copied in full, so nested anchors grow exponentially.
const MaxAliasNodes = 100000

// Decode parses a JSON or YAML document whose top level is an object. Key order
// is preserved in both formats.
func Decode(data []byte) (*Object, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, v.Type())
	}
	return obj, nil
}

// DecodeValue parses a JSON or YAML document of any shape
func DecodeValue(data []byte) (Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Value{}, fmt.Errorf("empty document")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		v, err := decodeJSON(trimmed)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, errTrailingData) {
			return Value{}, err
		}
		// Flow-style YAML also starts with a bracket
		yv, yerr := decodeYAML(trimmed)
		switch {
		case yerr == nil:
			return yv, nil
		case errors.Is(yerr, ErrTooComplex):
			return Value{}, yerr
		}
		return Value{}, err
	}
	return decodeYAML(trimmed)
}

// UnmarshalJSON decodes a JSON object into o, preserving key order
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	obj, ok := v.AsObject()
	if !ok {
		return fmt.Errorf("%w: got %s", ErrNotObject, v.Type())
	}
	*o = *obj
	return nil
}

func decodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readJSONValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("invalid JSON: %w", errTrailingData)
	}
	return v, nil
}

func readJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := readJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(obj), nil
		case '[':
			arr := make([]Value, 0)
			for dec.More() {
				val, err := readJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{typ: ArrayType, arr: arr}, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeYAML(data []byte) (Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return Value{}, fmt.Errorf("empty document")
		}
		return Value{}, fmt.Errorf("invalid YAML: %w", err)
	}
	var next yaml.Node
	if err := dec.Decode(&next); err != io.EOF {
		if err != nil {
			return Value{}, fmt.Errorf("invalid YAML: %w", err)
		}
		return Value{}, fmt.Errorf("invalid YAML: %w: found a second document at line %d", errTrailingData, next.Line)
	}
	conv := &yamlConverter{}
	return conv.value(&root, 0)
}

// maxAliasDepth bounds alias nesting so that self-referencing anchors fail
// instead of recursing forever.
const maxAliasDepth = 64

// yamlConverter turns a node tree into values, counting what aliases expand to
type yamlConverter struct {
	expanded int
}

func (c *yamlConverter) value(n *yaml.Node, aliasDepth int) (Value, error) {
	if aliasDepth > 0 {
		c.expanded++
		if c.expanded > MaxAliasNodes {
			return Value{}, fmt.Errorf("%w: aliases expand to more than %d values", ErrTooComplex, MaxAliasNodes)
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return c.value(n.Content[0], aliasDepth)
	case yaml.AliasNode:
		if aliasDepth >= maxAliasDepth {
			return Value{}, fmt.Errorf("line %d: alias nesting too deep", n.Line)
		}
		return c.value(n.Alias, aliasDepth+1)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.ShortTag() == "!!merge" {
				if err := c.mergeKeys(obj, valNode, aliasDepth); err != nil {
					return Value{}, err
				}
				continue
			}
			val, err := c.value(valNode, aliasDepth)
			if err != nil {
				return Value{}, err
			}
			obj.Set(keyNode.Value, val)
		}
		return ObjectValue(obj), nil
	case yaml.SequenceNode:
		arr := make([]Value, 0, len(n.Content))
		for _, child := range n.Content {
			val, err := c.value(child, aliasDepth)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, val)
		}
		return Value{typ: ArrayType, arr: arr}, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	default:
		return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

// mergeKeys applies a "<<" merge key: keys already set on obj win.
func (c *yamlConverter) mergeKeys(obj *Object, n *yaml.Node, aliasDepth int) error {
	src, err := c.value(n, aliasDepth)
	if err != nil {
		return err
	}
	var sources []*Object
	switch src.Type() {
	case ObjectType:
		sources = append(sources, src.obj)
	case ArrayType:
		for _, e := range src.arr {
			if e.typ == ObjectType {
				sources = append(sources, e.obj)
			}
		}
	default:
		return fmt.Errorf("line %d: merge key requires a mapping", n.Line)
	}
	for _, s := range sources {
		s.Range(func(k string, v Value) bool {
			if !obj.Has(k) {
				obj.Set(k, v)
			}
			return true
		})
	}
	return nil
}

func fromYAMLScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// Out of int64 range: keep the magnitude as a float
			f, ferr := strconv.ParseFloat(n.Value, 64)
			if ferr != nil {
				return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return Number(f), nil
		}
		return Number(float64(i)), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Number(f), nil
	default:
		return String(n.Value), nil
	}
}
