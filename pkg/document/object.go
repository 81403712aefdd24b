package document

import "sort"

// Object is an insertion-ordered record. The zero value is not usable; use
// NewObject. Read methods accept a nil receiver and behave as on an empty object.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject creates an empty object
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Len returns the number of keys
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Has reports whether key is present
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.values[key]
	return ok
}

// Get returns the value stored under key
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v Value) *Object {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
	return o
}

// SetString is shorthand for Set(key, String(s))
func (o *Object) SetString(key, s string) *Object { return o.Set(key, String(s)) }

// SetBool is shorthand for Set(key, Bool(b))
func (o *Object) SetBool(key string, b bool) *Object { return o.Set(key, Bool(b)) }

// SetObject is shorthand for Set(key, ObjectValue(child))
func (o *Object) SetObject(key string, child *Object) *Object {
	return o.Set(key, ObjectValue(child))
}

// SetObjects stores the given records as an array of objects
func (o *Object) SetObjects(key string, children []*Object) *Object {
	return o.Set(key, ObjectsValue(children))
}

// Delete removes key and returns the value it held
func (o *Object) Delete(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.values[key]
	if !ok {
		return Value{}, false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Append adds v to the array stored under key, creating the array if the key is
// absent. A non-array value under key is replaced by a new array holding v.
func (o *Object) Append(key string, v ...Value) *Object {
	cur, ok := o.values[key]
	if !ok || cur.typ != ArrayType {
		return o.Set(key, ArrayOf(v...))
	}
	return o.Set(key, cur.Append(v...))
}

// AppendObject adds child to the array of records stored under key
func (o *Object) AppendObject(key string, child *Object) *Object {
	return o.Append(key, ObjectValue(child))
}

// ObjectAt returns the object stored under key, or nil
func (o *Object) ObjectAt(key string) *Object {
	v, ok := o.Get(key)
	if !ok || v.typ != ObjectType {
		return nil
	}
	return v.obj
}

// ArrayAt returns the elements of the array stored under key
func (o *Object) ArrayAt(key string) ([]Value, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	return v.AsArray()
}

// ObjectsAt returns the records held by the array stored under key. Non-object
// elements are skipped.
func (o *Object) ObjectsAt(key string) []*Object {
	arr, ok := o.ArrayAt(key)
	if !ok {
		return nil
	}
	out := make([]*Object, 0, len(arr))
	for _, e := range arr {
		if e.typ == ObjectType {
			out = append(out, e.obj)
		}
	}
	return out
}

// StringAt returns the string stored under key
func (o *Object) StringAt(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// BoolAt returns the boolean stored under key, or def when absent or not a boolean
func (o *Object) BoolAt(key string, def bool) bool {
	v, ok := o.Get(key)
	if !ok {
		return def
	}
	if b, ok := v.AsBool(); ok {
		return b
	}
	return def
}

// Clone returns a deep copy of o
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{
		keys:   make([]string, len(o.keys)),
		values: make(map[string]Value, len(o.values)),
	}
	copy(c.keys, o.keys)
	for k, v := range o.values {
		c.values[k] = v.Clone()
	}
	return c
}

// Range calls fn for every key in order until fn returns false
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// ToMap converts o into a plain map
func (o *Object) ToMap() map[string]interface{} {
	if o == nil {
		return nil
	}
	m := make(map[string]interface{}, len(o.keys))
	for _, k := range o.keys {
		m[k] = o.values[k].Interface()
	}
	return m
}

// ObjectsValue wraps a list of records as an array value
func ObjectsValue(children []*Object) Value {
	arr := make([]Value, len(children))
	for i, c := range children {
		arr[i] = ObjectValue(c)
	}
	return Value{typ: ArrayType, arr: arr}
}

// CloneAll deep-copies every record of list
func CloneAll(list []*Object) []*Object {
	out := make([]*Object, len(list))
	for i, o := range list {
		out[i] = o.Clone()
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
