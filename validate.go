package barrister

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// PathBuffer builds validation locations like `person.phones[2].kind`
// without allocating a new string at every level of recursion.
type PathBuffer struct {
	buf []byte
	off []int
}

// NewPathBuffer creates a path buffer starting at `root`.
func NewPathBuffer(root string) *PathBuffer {
	b := make([]byte, 0, 64)
	return &PathBuffer{buf: append(b, root...)}
}

// Push adds a field name to the path.
func (b *PathBuffer) Push(name string) {
	b.off = append(b.off, len(b.buf))
	if len(b.buf) > 0 {
		b.buf = append(b.buf, '.')
	}
	b.buf = append(b.buf, name...)
}

// PushIndex adds an array index to the path.
func (b *PathBuffer) PushIndex(i int) {
	b.off = append(b.off, len(b.buf))
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(i), 10)
	b.buf = append(b.buf, ']')
}

// Pop removes the last pushed segment.
func (b *PathBuffer) Pop() {
	last := len(b.off) - 1
	b.buf = b.buf[:b.off[last]]
	b.off = b.off[:last]
}

// String returns the current path.
func (b *PathBuffer) String() string {
	return string(b.buf)
}

func (b *PathBuffer) errorf(value any, format string, args ...any) *ErrorDetail {
	return &ErrorDetail{
		Message:  fmt.Sprintf(format, args...),
		Location: b.String(),
		Value:    value,
	}
}

// Validate checks `value` against the type spec and returns an
// `*ErrorDetail` naming the offending path, or nil. Rules are applied in
// order: null handling, then arrays, then primitives, then named struct and
// enum types. Validation has no side effects.
func (c *Contract) Validate(path string, t TypeSpec, value any) error {
	if err := c.validate(NewPathBuffer(path), t, value); err != nil {
		return err
	}
	return nil
}

func (c *Contract) validate(pb *PathBuffer, t TypeSpec, value any) *ErrorDetail {
	kind := KindOf(value)

	if kind == KindNull {
		if t.Optional {
			return nil
		}
		return pb.errorf(value, "%s cannot be null", pb)
	}

	if t.IsArray {
		if kind != KindArray {
			return pb.errorf(value, "%s: expected %s, got %s", pb, t, kind)
		}
		elem := TypeSpec{Type: t.Type, Optional: t.Optional}
		for i, item := range elements(value) {
			pb.PushIndex(i)
			err := c.validate(pb, elem, item)
			pb.Pop()
			if err != nil {
				return err
			}
		}
		return nil
	}

	switch t.Type {
	case TypeString:
		return c.expectKind(pb, t, value, kind, KindString)
	case TypeBool:
		return c.expectKind(pb, t, value, kind, KindBool)
	case TypeFloat:
		return c.expectKind(pb, t, value, kind, KindNumber)
	case TypeInt:
		if err := c.expectKind(pb, t, value, kind, KindNumber); err != nil {
			return err
		}
		if !IsIntegral(value) {
			return pb.errorf(value, "%s: expected int, got non-integral number %v", pb, value)
		}
		return nil
	}

	if s := c.structs[t.Type]; s != nil {
		return c.validateStruct(pb, s, value, kind)
	}

	if e := c.enums[t.Type]; e != nil {
		if kind != KindString {
			return pb.errorf(value, "%s: expected enum %s, got %s", pb, e.Name, kind)
		}
		if s := fmt.Sprint(value); !e.Has(s) {
			return pb.errorf(value, "%s: value '%s' is not in enum '%s'", pb, s, e.Name)
		}
		return nil
	}

	return pb.errorf(value, "%s: unknown type '%s'", pb, t.Type)
}

func (c *Contract) expectKind(pb *PathBuffer, t TypeSpec, value any, got, want Kind) *ErrorDetail {
	if got != want {
		return pb.errorf(value, "%s: expected %s, got %s", pb, t, got)
	}
	return nil
}

func (c *Contract) validateStruct(pb *PathBuffer, s *Struct, value any, kind Kind) *ErrorDetail {
	if kind != KindObject {
		return pb.errorf(value, "%s: expected %s, got %s", pb, s.Name, kind)
	}
	if s.missing != "" {
		return pb.errorf(value, "%s: unknown type '%s' (extended by '%s')", pb, s.missing, s.Name)
	}

	fields := entries(value)
	for _, f := range s.effective {
		pb.Push(f.Name)
		err := c.validate(pb, f.TypeSpec, fields[f.Name])
		pb.Pop()
		if err != nil {
			return err
		}
	}

	// Structs are closed, so every key must be a known field.
	keys := maps.Keys(fields)
	slices.Sort(keys)
	for _, k := range keys {
		if _, ok := s.fieldSet[k]; !ok {
			return pb.errorf(value, "%s: field '%s' not found in struct '%s'", pb, k, s.Name)
		}
	}

	return nil
}

// ValidateRequest resolves a method and checks its params: the count must
// match exactly (there are no optional or variadic params), then each param
// is validated in order. Failures are `*Error` values with code
// `MethodNotFound` or `InvalidParams`.
func (c *Contract) ValidateRequest(method string, params []any) (*Interface, *Function, error) {
	iface, fn, err := c.Resolve(method)
	if err != nil {
		return nil, nil, err
	}

	if len(params) != len(fn.Params) {
		return nil, nil, Errorf(InvalidParams, "Function '%s': Param length %d != expected length %d",
			method, len(params), len(fn.Params))
	}
	for i, p := range fn.Params {
		if err := c.Validate(paramPath(p, i), p.TypeSpec, params[i]); err != nil {
			return nil, nil, contractError(InvalidParams, method, err)
		}
	}

	return iface, fn, nil
}

// ValidateResult checks a function's result against its declared return
// type. Failures are `*Error` values with code `InvalidResponse`.
func (c *Contract) ValidateResult(method string, result any) error {
	_, fn, err := c.Resolve(method)
	if err != nil {
		return err
	}
	if err := c.Validate("result", fn.Returns, result); err != nil {
		return contractError(InvalidResponse, method, err)
	}
	return nil
}
