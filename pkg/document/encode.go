package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MarshalJSON encodes o with keys in insertion order
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := o.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes v. Integral numbers are written without a fraction.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) writeJSON(buf *bytes.Buffer) error {
	if o == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := o.values[k].writeJSON(buf); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.typ {
	case NullType:
		buf.WriteString("null")
	case StringType:
		s, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(s)
	case NumberType:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return fmt.Errorf("unsupported number %v", v.num)
		}
		buf.WriteString(formatNumber(v.num))
	case BoolType:
		buf.WriteString(strconv.FormatBool(v.b))
	case ArrayType:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectType:
		return v.obj.writeJSON(buf)
	default:
		return fmt.Errorf("unknown value type %d", v.typ)
	}
	return nil
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
