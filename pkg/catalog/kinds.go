package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/document"
)

// Kind is a normalized entity kind
type Kind uint8

const (
	Service Kind = iota
	Tag
	Request
	Server
	ServerVariable
	Example
	Parameter
	Security
	SecurityScope
	Response
	Link
	LinkParameter
	Header
	Schema
	Item
	Property
	Callback
	Webhook

	kindCount
)

var kindNames = [kindCount]string{
	Service:        "Service",
	Tag:            "Tag",
	Request:        "Request",
	Server:         "Server",
	ServerVariable: "ServerVariable",
	Example:        "Example",
	Parameter:      "Parameter",
	Security:       "Security",
	SecurityScope:  "SecurityScope",
	Response:       "Response",
	Link:           "Link",
	LinkParameter:  "LinkParameter",
	Header:         "Header",
	Schema:         "Schema",
	Item:           "Item",
	Property:       "Property",
	Callback:       "Callback",
	Webhook:        "Webhook",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool { return k < kindCount }

// SelfRecursive reports whether k nests inside itself (Property and Item)
func (k Kind) SelfRecursive() bool { return k == Property || k == Item }

// MarshalText encodes the kind name
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind returns the kind with the given name
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", name)
}

// Kinds returns every kind in declaration order
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// FieldType is a bit set of the value types a field accepts
type FieldType uint8

const (
	StringType FieldType = 1 << iota
	NumberType
	BoolType
	ArrayType

	AnyType = StringType | NumberType | BoolType
)

func (t FieldType) String() string {
	var parts []string
	for _, p := range []struct {
		bit  FieldType
		name string
	}{{StringType, "string"}, {NumberType, "number"}, {BoolType, "boolean"}, {ArrayType, "array"}} {
		if t&p.bit != 0 {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Accepts reports whether v matches the type set. An array is accepted when
// the set includes ArrayType and every element matches the scalar bits.
func (t FieldType) Accepts(v document.Value) bool {
	switch v.Type() {
	case document.StringType:
		return t&StringType != 0
	case document.NumberType:
		return t&NumberType != 0
	case document.BoolType:
		return t&BoolType != 0
	case document.NullType:
		return true
	case document.ArrayType:
		if t&ArrayType == 0 {
			return false
		}
		elems, _ := v.AsArray()
		scalar := t &^ ArrayType
		for _, e := range elems {
			if !scalar.Accepts(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FieldCatalog maps each kind to its typed fields
type FieldCatalog map[Kind]map[string]FieldType

// schemaFields is the constraint vocabulary shared by Schema, Item and Property
var schemaFields = map[string]FieldType{
	"title":            StringType,
	"description":      StringType,
	"required":         StringType,
	"multipleOf":       NumberType,
	"maximum":          NumberType,
	"exclusiveMaximum": NumberType,
	"minimum":          NumberType,
	"exclusiveMinimum": NumberType,
	"maxLength":        NumberType,
	"minLength":        NumberType,
	"pattern":          StringType,
	"maxItems":         NumberType,
	"minItems":         NumberType,
	"uniqueItems":      BoolType,
	"maxProperties":    NumberType,
	"minProperties":    NumberType,
	"type":             StringType,
	"format":           StringType,
	"default":          AnyType,
	"const":            AnyType,
	"enum":             AnyType | ArrayType,
	"examples":         AnyType,
	"readOnly":         BoolType,
	"writeOnly":        BoolType,
	"deprecated":       BoolType,
	"contentMediaType": StringType,
	"contentEncoding":  StringType,
	"x-refersTo":       StringType,
	"x-kindOf":         StringType,
	"x-collectionOn":   StringType,
}

// operationFields is shared by Request, Callback and Webhook
var operationFields = map[string]FieldType{
	"method":             StringType,
	"contentType":        StringType,
	"bodyRequired":       BoolType,
	"summary":            StringType,
	"description":        StringType,
	"bodyDescription":    StringType,
	"operationId":        StringType,
	"deprecated":         BoolType,
	"extDocsDescription": StringType,
	"extDocsUrl":         StringType,
	"tags":               StringType | ArrayType,
	"x-operationType":    StringType,
}

func with(base map[string]FieldType, extra map[string]FieldType) map[string]FieldType {
	out := make(map[string]FieldType, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func allStrings(names ...string) map[string]FieldType {
	out := make(map[string]FieldType, len(names))
	for _, n := range names {
		out[n] = StringType
	}
	return out
}

// DefaultFields returns the field catalog of the compiled description format
func DefaultFields() FieldCatalog {
	return FieldCatalog{
		Service: allStrings("title", "id", "description", "openapiVersion", "version",
			"jsonSchemaDialect", "termsOfService", "contactName", "contactUrl", "contactEmail",
			"licenseName", "licenseUrl", "licenseIdentifier", "extDocsDescription", "extDocsUrl", "summary"),
		Tag:     allStrings("name", "description", "extDocsDescription", "extDocsUrl"),
		Request: with(operationFields, map[string]FieldType{"path": StringType}),
		Server:  allStrings("url", "description"),
		ServerVariable: {
			"name":        StringType,
			"enum":        AnyType | ArrayType,
			"default":     AnyType,
			"description": StringType,
		},
		Example: {
			"name":          StringType,
			"summary":       StringType,
			"description":   StringType,
			"value":         AnyType,
			"externalValue": AnyType,
		},
		Parameter: {
			"name":            StringType,
			"in":              StringType,
			"description":     StringType,
			"required":        BoolType,
			"deprecated":      BoolType,
			"allowEmptyValue": BoolType,
			"allowReserved":   BoolType,
			"contentType":     StringType,
			"style":           StringType,
			"explode":         BoolType,
		},
		Security: allStrings("name", "type", "description", "apiKeyName", "apiKeyIn",
			"httpScheme", "httpBearerFormat", "openIdConnectUrl",
			"oauth2ImplAuthUrl", "oauth2ImplRefreshUrl",
			"oauth2PassTokenUrl", "oauth2PassRefreshUrl",
			"oauth2ClientCredTokenUrl", "oauth2ClientCredRefreshUrl",
			"oauth2CodeAuthUrl", "oauth2CodeTokenUrl", "oauth2CodeRefreshUrl"),
		SecurityScope: allStrings("name", "description"),
		Response: {
			"statusCode":  NumberType | StringType,
			"contentType": StringType,
			"description": StringType,
		},
		Link: allStrings("name", "operationRef", "operationId", "requestBody",
			"description", "url", "serverDescription"),
		LinkParameter: {
			"name":  StringType,
			"value": AnyType,
		},
		Header: {
			"name":            StringType,
			"description":     StringType,
			"required":        BoolType,
			"deprecated":      BoolType,
			"allowEmptyValue": BoolType,
			"contentType":     StringType,
			"style":           StringType,
			"explode":         BoolType,
		},
		Schema: with(schemaFields, map[string]FieldType{
			"extDocsDescription": StringType,
			"extDocsUrl":         StringType,
		}),
		Item: with(schemaFields, nil),
		Property: with(schemaFields, map[string]FieldType{
			"name":          StringType,
			"contentType":   StringType,
			"allowReserved": BoolType,
			"style":         StringType,
			"explode":       BoolType,
			"xmlName":       StringType,
			"xmlNamespace":  StringType,
			"xmlPrefix":     StringType,
			"xmlAttribute":  BoolType,
			"xmlWrapped":    BoolType,
		}),
		Callback: with(operationFields, map[string]FieldType{
			"name": StringType,
			"path": StringType,
		}),
		Webhook: with(operationFields, map[string]FieldType{"name": StringType}),
	}
}

// Fields returns the sorted field names of kind
func (fc FieldCatalog) Fields(kind Kind) []string {
	fields := fc[kind]
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FieldType returns the type set of a field
func (fc FieldCatalog) FieldType(kind Kind, name string) (FieldType, bool) {
	t, ok := fc[kind][name]
	return t, ok
}

// Allows reports whether v may be stored under name on kind. Extension fields
// outside the catalog are untyped and always allowed.
func (fc FieldCatalog) Allows(kind Kind, name string, v document.Value) bool {
	t, ok := fc[kind][name]
	if !ok {
		return strings.HasPrefix(name, "x-")
	}
	return t.Accepts(v)
}
