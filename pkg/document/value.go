package document

import "fmt"

// Type tags the variant held by a Value
type Type uint8

const (
	NullType Type = iota
	StringType
	NumberType
	BoolType
	ArrayType
	ObjectType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case StringType:
		return "string"
	case NumberType:
		return "number"
	case BoolType:
		return "boolean"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Value is a tagged union over the JSON data model
type Value struct {
	typ Type
	str string
	num float64
	b   bool
	arr []Value
	obj *Object
}

// Null returns the null value
func Null() Value { return Value{typ: NullType} }

// String wraps a string
func String(s string) Value { return Value{typ: StringType, str: s} }

// Number wraps a number
func Number(f float64) Value { return Value{typ: NumberType, num: f} }

// Int wraps an integer as a number
func Int(i int) Value { return Value{typ: NumberType, num: float64(i)} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{typ: BoolType, b: b} }

// ArrayOf builds an array value from the given elements. The slice is copied.
func ArrayOf(elems ...Value) Value {
	arr := make([]Value, len(elems))
	copy(arr, elems)
	return Value{typ: ArrayType, arr: arr}
}

// ObjectValue wraps an object. A nil object becomes an empty object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{typ: ObjectType, obj: o}
}

// Type reports the variant held by v
func (v Value) Type() Type { return v.typ }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.typ == NullType }

// IsArray reports whether v is an array
func (v Value) IsArray() bool { return v.typ == ArrayType }

// IsObject reports whether v is an object
func (v Value) IsObject() bool { return v.typ == ObjectType }

// IsScalar reports whether v is neither an array nor an object
func (v Value) IsScalar() bool { return v.typ != ArrayType && v.typ != ObjectType }

// AsString returns the string held by v
func (v Value) AsString() (string, bool) { return v.str, v.typ == StringType }

// AsNumber returns the number held by v
func (v Value) AsNumber() (float64, bool) { return v.num, v.typ == NumberType }

// AsBool returns the boolean held by v
func (v Value) AsBool() (bool, bool) { return v.b, v.typ == BoolType }

// AsArray returns the elements held by v. The returned slice must not be
// appended to; use Object.Append to grow an array field.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.typ == ArrayType }

// AsObject returns the object held by v
func (v Value) AsObject() (*Object, bool) { return v.obj, v.typ == ObjectType }

// Len returns the number of elements of an array or keys of an object
func (v Value) Len() int {
	switch v.typ {
	case ArrayType:
		return len(v.arr)
	case ObjectType:
		return v.obj.Len()
	default:
		return 0
	}
}

// Clone returns a deep copy of v
func (v Value) Clone() Value {
	switch v.typ {
	case ArrayType:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Clone()
		}
		return Value{typ: ArrayType, arr: arr}
	case ObjectType:
		return Value{typ: ObjectType, obj: v.obj.Clone()}
	default:
		return v
	}
}

// Append returns an array holding the elements of v followed by elems. v must be
// an array; the result never shares a backing array with v.
func (v Value) Append(elems ...Value) Value {
	arr := make([]Value, 0, len(v.arr)+len(elems))
	arr = append(arr, v.arr...)
	arr = append(arr, elems...)
	return Value{typ: ArrayType, arr: arr}
}

// ScalarEqual reports whether a and b are equal scalars. Arrays and objects are
// never equal to anything, including themselves: structural identity is not
// compared.
func ScalarEqual(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case NullType:
		return true
	case StringType:
		return a.str == b.str
	case NumberType:
		return a.num == b.num
	case BoolType:
		return a.b == b.b
	default:
		return false
	}
}

// Contains reports whether the array v holds an element scalar-equal to e
func (v Value) Contains(e Value) bool {
	for _, x := range v.arr {
		if ScalarEqual(x, e) {
			return true
		}
	}
	return false
}

// Interface converts v into plain Go values: nil, string, float64, bool,
// []interface{} and map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.typ {
	case StringType:
		return v.str
	case NumberType:
		return v.num
	case BoolType:
		return v.b
	case ArrayType:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case ObjectType:
		return v.obj.ToMap()
	default:
		return nil
	}
}

// FromInterface converts plain Go values into a Value. Map keys are sorted
// because Go maps carry no order.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Object:
		return ObjectValue(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case []interface{}:
		arr := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = ev
		}
		return Value{typ: ArrayType, arr: arr}, nil
	case []string:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = String(e)
		}
		return Value{typ: ArrayType, arr: arr}, nil
	case map[string]interface{}:
		obj := NewObject()
		for _, k := range sortedKeys(t) {
			ev, err := FromInterface(t[k])
			if err != nil {
				return Value{}, err
			}
			obj.Set(k, ev)
		}
		return ObjectValue(obj), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", v.typ)
	}
	return string(data)
}
