// Package document provides the ordered, tagged-union record model shared by the
// description compiler, the storage layer and the query helpers.
//
// # Overview
//
// API descriptions are loosely typed: the same keyword may carry a string in one
// document and an array in the next. Instead of passing map[string]interface{}
// around, every value is a Value tagged with one of:
//
//	NullType, StringType, NumberType, BoolType, ArrayType, ObjectType
//
// Objects keep their keys in declaration order. The order matters because the
// schema compositor multiplies variants in the order properties are declared.
//
// # Decoding
//
// Decode accepts both JSON and YAML input:
//
//	obj, err := document.Decode(raw)
//	if err != nil {
//		return err
//	}
//	title, _ := obj.ObjectAt("info").StringAt("title")
//
// # Copy semantics
//
// Clone always produces a fully independent tree. Arrays appended through
// Object.Append never share a backing array with the previous value, so two
// clones can grow independently.
package document
