package barrister

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
)

// Declaration types found in the `type` field of each IDL record.
const (
	DeclInterface = "interface"
	DeclStruct    = "struct"
	DeclEnum      = "enum"
	DeclMeta      = "meta"
)

// Primitive type names.
const (
	TypeString = "string"
	TypeBool   = "bool"
	TypeInt    = "int"
	TypeFloat  = "float"
)

// IDLMethod is the reserved method name which returns the raw IDL document.
const IDLMethod = "barrister-idl"

// TypeSpec is a type reference plus array/optional modifiers, used for a
// parameter, a return value or a struct field. Arrays never nest.
type TypeSpec struct {
	Type     string `mapstructure:"type" json:"type"`
	IsArray  bool   `mapstructure:"is_array" json:"is_array"`
	Optional bool   `mapstructure:"optional" json:"optional"`
}

// String returns the type as written in messages, e.g. `[]int`.
func (t TypeSpec) String() string {
	if t.IsArray {
		return "[]" + t.Type
	}
	return t.Type
}

// IsPrimitive returns true for the fixed primitive types.
func (t TypeSpec) IsPrimitive() bool {
	return isPrimitive(t.Type)
}

func isPrimitive(name string) bool {
	switch name {
	case TypeString, TypeBool, TypeInt, TypeFloat:
		return true
	}
	return false
}

// Field is a named type, used for struct fields and function params.
type Field struct {
	Name     string `mapstructure:"name" json:"name"`
	Comment  string `mapstructure:"comment" json:"comment,omitempty"`
	TypeSpec `mapstructure:",squash"`
}

// Function is a single callable operation of an interface. Param order is
// significant since calls are positional.
type Function struct {
	Name    string   `mapstructure:"name"`
	Comment string   `mapstructure:"comment"`
	Params  []Field  `mapstructure:"params"`
	Returns TypeSpec `mapstructure:"returns"`
}

// Interface is a named set of functions.
type Interface struct {
	Name      string      `mapstructure:"name"`
	Comment   string      `mapstructure:"comment"`
	Functions []*Function `mapstructure:"functions"`

	functions map[string]*Function
}

// Function returns the function with the given name or nil.
func (i *Interface) Function(name string) *Function {
	return i.functions[name]
}

// Struct is a closed record type with optional single inheritance.
type Struct struct {
	Name    string  `mapstructure:"name"`
	Comment string  `mapstructure:"comment"`
	Extends string  `mapstructure:"extends"`
	Fields  []Field `mapstructure:"fields"`

	// effective is own fields followed by ancestor fields, resolved once.
	effective []Field
	fieldSet  map[string]struct{}

	// missing holds an `extends` name that could not be resolved anywhere in
	// the chain. It is reported lazily when a value is validated.
	missing string
}

// EffectiveFields returns the struct's own fields followed by all of its
// ancestors' fields.
func (s *Struct) EffectiveFields() []Field {
	return s.effective
}

// EnumValue is a single allowed enum string.
type EnumValue struct {
	Value   string `mapstructure:"value"`
	Comment string `mapstructure:"comment"`
}

// Enum is a named set of allowed strings.
type Enum struct {
	Name    string      `mapstructure:"name"`
	Comment string      `mapstructure:"comment"`
	Values  []EnumValue `mapstructure:"values"`

	values map[string]struct{}
}

// Has returns whether `v` is one of the declared values. Matching is exact
// and case-sensitive.
func (e *Enum) Has(v string) bool {
	_, ok := e.values[v]
	return ok
}

var enumValueType = reflect.TypeOf(EnumValue{})

// enumValueHook lets enum values be written as bare strings as well as
// `{"value": "..."}` records.
func enumValueHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to == enumValueType && from.Kind() == reflect.String {
		return EnumValue{Value: data.(string)}, nil
	}
	return data, nil
}

func decodeDecl(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: enumValueHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// ParseIDL decodes an IDL document from JSON or YAML. YAML is a superset of
// JSON, but JSON documents take the faster path when they look like JSON.
func ParseIDL(data []byte) ([]any, error) {
	trimmed := strings.TrimSpace(string(data))
	var doc any
	if strings.HasPrefix(trimmed, "[") {
		v, err := decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIDL, err)
		}
		doc = v
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIDL, err)
		}
		doc = fromYAML(doc)
	}

	decls, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: document must be an array of declarations", ErrInvalidIDL)
	}
	return decls, nil
}

// fromYAML converts YAML's `map[string]interface{}` / `map[interface{}]...`
// shapes into the generic value model.
func fromYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = fromYAML(item)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = fromYAML(item)
		}
		return m
	case []any:
		for i, item := range t {
			t[i] = fromYAML(item)
		}
		return t
	}
	return v
}

// ParseContract parses a JSON or YAML IDL document into a contract.
func ParseContract(data []byte) (*Contract, error) {
	decls, err := ParseIDL(data)
	if err != nil {
		return nil, err
	}
	return NewContract(decls)
}

// LoadContract reads an IDL file from disk. Files ending in `.yaml` or `.yml`
// are parsed as YAML, everything else as JSON.
func LoadContract(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidIDL, path, err)
		}
		decls, ok := fromYAML(doc).([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: document must be an array of declarations", ErrInvalidIDL, path)
		}
		return NewContract(decls)
	}

	c, err := ParseContract(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
