package barrister

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathBuffer(t *testing.T) {
	pb := NewPathBuffer("person")
	pb.Push("pets")
	pb.PushIndex(2)
	pb.Push("breed")
	assert.Equal(t, "person.pets[2].breed", pb.String())
	pb.Pop()
	pb.Pop()
	assert.Equal(t, "person.pets", pb.String())
	pb.Pop()
	assert.Equal(t, "person", pb.String())

	empty := NewPathBuffer("")
	empty.Push("a")
	assert.Equal(t, "a", empty.String())
}

var dog = map[string]any{"name": "Rex", "breed": "lab"}

var validateTests = []struct {
	name  string
	spec  TypeSpec
	value any
	err   string
	loc   string
}{
	{name: "string", spec: TypeSpec{Type: "string"}, value: "hi"},
	{name: "string-wrong", spec: TypeSpec{Type: "string"}, value: 5, err: "v: expected string, got number"},
	{name: "bool", spec: TypeSpec{Type: "bool"}, value: true},
	{name: "bool-wrong", spec: TypeSpec{Type: "bool"}, value: "true", err: "v: expected bool, got string"},
	{name: "float", spec: TypeSpec{Type: "float"}, value: 1.5},
	{name: "float-from-int", spec: TypeSpec{Type: "float"}, value: 3},
	{name: "float-wrong", spec: TypeSpec{Type: "float"}, value: "1.5", err: "v: expected float, got string"},
	{name: "int", spec: TypeSpec{Type: "int"}, value: 3},
	{name: "int-json-number", spec: TypeSpec{Type: "int"}, value: json.Number("42")},
	{name: "int-integral-float", spec: TypeSpec{Type: "int"}, value: 3.0},
	{name: "int-integral-json-float", spec: TypeSpec{Type: "int"}, value: json.Number("3.0")},
	{name: "int-fraction", spec: TypeSpec{Type: "int"}, value: 3.5, err: "v: expected int, got non-integral number 3.5"},
	{name: "int-wrong", spec: TypeSpec{Type: "int"}, value: false, err: "v: expected int, got bool"},
	{name: "null", spec: TypeSpec{Type: "string"}, value: nil, err: "v cannot be null"},
	{name: "null-optional", spec: TypeSpec{Type: "string", Optional: true}, value: nil},
	{name: "null-optional-struct", spec: TypeSpec{Type: "Dog", Optional: true}, value: nil},
	{name: "array", spec: TypeSpec{Type: "int", IsArray: true}, value: []any{1, 2, 3}},
	{name: "array-empty", spec: TypeSpec{Type: "int", IsArray: true}, value: []any{}},
	{name: "array-typed", spec: TypeSpec{Type: "string", IsArray: true}, value: []string{"a", "b"}},
	{name: "array-item", spec: TypeSpec{Type: "int", IsArray: true}, value: []any{1, "x"}, err: "v[1]: expected int, got string", loc: "v[1]"},
	{name: "array-scalar", spec: TypeSpec{Type: "int", IsArray: true}, value: 5, err: "v: expected []int, got number"},
	{name: "array-null-item", spec: TypeSpec{Type: "int", IsArray: true}, value: []any{1, nil}, err: "v[1] cannot be null"},
	{name: "array-null-item-optional", spec: TypeSpec{Type: "int", IsArray: true, Optional: true}, value: []any{1, nil}},
	{name: "enum", spec: TypeSpec{Type: "Breed"}, value: "poodle"},
	{name: "enum-other", spec: TypeSpec{Type: "Breed"}, value: "Poodle", err: "v: value 'Poodle' is not in enum 'Breed'"},
	{name: "enum-non-string", spec: TypeSpec{Type: "Breed"}, value: 1, err: "v: expected enum Breed, got number"},
	{name: "struct", spec: TypeSpec{Type: "Dog"}, value: dog},
	{name: "struct-all-fields", spec: TypeSpec{Type: "Dog"}, value: map[string]any{"name": "Rex", "sound": "woof", "breed": "lab"}},
	{name: "struct-missing", spec: TypeSpec{Type: "Dog"}, value: map[string]any{"breed": "lab"}, err: "v.name cannot be null", loc: "v.name"},
	{name: "struct-extra", spec: TypeSpec{Type: "Dog"}, value: map[string]any{"name": "Rex", "breed": "lab", "color": "brown"}, err: "v: field 'color' not found in struct 'Dog'"},
	{name: "struct-wrong", spec: TypeSpec{Type: "Dog"}, value: "Rex", err: "v: expected Dog, got string"},
	{name: "struct-nested", spec: TypeSpec{Type: "Person"}, value: map[string]any{
		"name": "Alice",
		"age":  30,
		"pets": []any{dog, map[string]any{"name": "Fido", "breed": "beagle"}},
	}, err: "v.pets[1].breed: value 'beagle' is not in enum 'Breed'", loc: "v.pets[1].breed"},
	{name: "struct-typed-map", spec: TypeSpec{Type: "Dog"}, value: map[string]string{"name": "Rex", "breed": "lab"}},
	{name: "unknown", spec: TypeSpec{Type: "Ghost"}, value: "boo", err: "v: unknown type 'Ghost'"},
}

func TestValidate(t *testing.T) {
	c := testContract(t)

	for _, item := range validateTests {
		t.Run(item.name, func(t *testing.T) {
			err := c.Validate("v", item.spec, item.value)
			if item.err == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, item.err, err.Error())

			detail, ok := err.(ErrorDetailer)
			require.True(t, ok)
			if item.loc != "" {
				assert.Equal(t, item.loc, detail.ErrorDetail().Location)
			}
		})
	}
}

func TestValidateIdempotent(t *testing.T) {
	c := testContract(t)
	value := map[string]any{"name": "Rex", "breed": "lab"}
	spec := TypeSpec{Type: "Dog"}

	for i := 0; i < 3; i++ {
		assert.NoError(t, c.Validate("dog", spec, value))
	}
	assert.Equal(t, map[string]any{"name": "Rex", "breed": "lab"}, value)

	bad := []any{1, "x"}
	first := c.Validate("v", TypeSpec{Type: "int", IsArray: true}, bad)
	second := c.Validate("v", TypeSpec{Type: "int", IsArray: true}, bad)
	assert.Equal(t, first, second)
}

func TestValidateMissingParent(t *testing.T) {
	c, err := ParseContract([]byte(`[
		{"type": "struct", "name": "Orphan", "extends": "Missing", "fields": [
			{"name": "x", "type": "int"}
		]}
	]`))
	require.NoError(t, err)

	err = c.Validate("v", TypeSpec{Type: "Orphan"}, map[string]any{"x": 1})
	require.Error(t, err)
	assert.Equal(t, "v: unknown type 'Missing' (extended by 'Orphan')", err.Error())
}

func TestValidateRequest(t *testing.T) {
	c := testContract(t)

	iface, fn, err := c.ValidateRequest("Calculator.add", []any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "Calculator", iface.Name)
	assert.Equal(t, "add", fn.Name)

	_, _, err = c.ValidateRequest("Calculator.add", []any{1})
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, InvalidParams, e.Code)
	assert.Equal(t, "Function 'Calculator.add': Param length 1 != expected length 2", e.Message)

	_, _, err = c.ValidateRequest("Calculator.add", []any{1, "two"})
	e, ok = AsError(err)
	require.True(t, ok)
	assert.Equal(t, InvalidParams, e.Code)
	assert.Equal(t, "Calculator.add: b: expected int, got string", e.Message)
	require.IsType(t, &ErrorDetail{}, e.Data)
	assert.Equal(t, "b", e.Data.(*ErrorDetail).Location)

	_, _, err = c.ValidateRequest("Calculator.nope", nil)
	e, ok = AsError(err)
	require.True(t, ok)
	assert.Equal(t, MethodNotFound, e.Code)
}

func TestValidateResult(t *testing.T) {
	c := testContract(t)

	assert.NoError(t, c.ValidateResult("Calculator.add", 3))
	assert.NoError(t, c.ValidateResult("Calculator.maybe", nil))

	err := c.ValidateResult("Calculator.add", "3")
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, InvalidResponse, e.Code)
	assert.Equal(t, "Calculator.add: result: expected int, got string", e.Message)
	assert.Nil(t, e.Data)
}
