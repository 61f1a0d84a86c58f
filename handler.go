package barrister

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/danielgtaylor/casing"
	"github.com/mitchellh/mapstructure"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// methodsOf builds the function table for an interface implementation.
func methodsOf(c *Contract, iface *Interface, impl any) (Methods, error) {
	switch m := impl.(type) {
	case nil:
		return nil, fmt.Errorf("implementation is nil")
	case Methods:
		return m, nil
	case map[string]Func:
		return Methods(m), nil
	}

	v := reflect.ValueOf(impl)
	methods := Methods{}
	for _, fn := range iface.Functions {
		m := findMethod(v, fn.Name)
		if !m.IsValid() {
			// Reported per call as not implemented.
			continue
		}
		f, err := adaptMethod(c, m, fn)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", iface.Name, fn.Name, err)
		}
		methods[fn.Name] = f
	}
	return methods, nil
}

// findMethod looks up the Go method serving an IDL function name, e.g.
// `getUserID` is served by `GetUserID`.
func findMethod(v reflect.Value, name string) reflect.Value {
	candidates := []string{casing.Camel(name, casing.Identity)}
	if name != "" {
		r := []rune(name)
		r[0] = unicode.ToUpper(r[0])
		candidates = append(candidates, string(r))
	}
	for _, c := range candidates {
		if m := v.MethodByName(c); m.IsValid() {
			return m
		}
	}
	return reflect.Value{}
}

// adaptMethod checks a method's signature against the IDL function and wraps
// it as a `Func`. Params arrive validated, so a value the Go type cannot hold
// is a fault of the handler, not of the caller.
func adaptMethod(c *Contract, m reflect.Value, fn *Function) (Func, error) {
	t := m.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("variadic methods are not supported")
	}

	offset := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		offset = 1
	}
	if t.NumIn()-offset != len(fn.Params) {
		return nil, fmt.Errorf("method takes %d params, function declares %d", t.NumIn()-offset, len(fn.Params))
	}
	for i, p := range fn.Params {
		if err := c.assignable(p.TypeSpec, t.In(offset+i)); err != nil {
			return nil, fmt.Errorf("param %s: %w", paramPath(p, i), err)
		}
	}

	hasResult := false
	switch t.NumOut() {
	case 1:
		hasResult = t.Out(0) != errorType
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("second return value must be an error")
		}
		hasResult = true
	default:
		return nil, fmt.Errorf("method must return (result, error), result or error")
	}
	errIndex := -1
	if t.Out(t.NumOut()-1) == errorType {
		errIndex = t.NumOut() - 1
	}

	return func(ctx context.Context, params []any) (any, error) {
		args := make([]reflect.Value, 0, t.NumIn())
		if offset == 1 {
			args = append(args, reflect.ValueOf(&ctx).Elem())
		}
		for i, p := range params {
			arg, err := convertArg(p, t.In(offset+i))
			if err != nil {
				return nil, fmt.Errorf("converting param %s: %w", paramPath(fn.Params[i], i), err)
			}
			args = append(args, arg)
		}

		out := m.Call(args)

		if errIndex >= 0 && !out[errIndex].IsNil() {
			return nil, out[errIndex].Interface().(error)
		}
		if !hasResult {
			return nil, nil
		}
		return out[0].Interface(), nil
	}, nil
}

// assignable reports whether values of the IDL type can be converted to the
// Go type. Unknown type names are left to validation.
func (c *Contract) assignable(spec TypeSpec, t reflect.Type) error {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return nil
	}

	if spec.IsArray {
		if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
			return fmt.Errorf("%s cannot hold %s", t, spec)
		}
		return c.assignable(TypeSpec{Type: spec.Type}, t.Elem())
	}

	var ok bool
	switch {
	case spec.Type == TypeString || c.Enum(spec.Type) != nil:
		ok = t.Kind() == reflect.String
	case spec.Type == TypeBool:
		ok = t.Kind() == reflect.Bool
	case spec.Type == TypeInt:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			ok = true
		}
	case spec.Type == TypeFloat:
		ok = t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
	case c.Struct(spec.Type) != nil:
		ok = t.Kind() == reflect.Struct || (t.Kind() == reflect.Map && t.Key().Kind() == reflect.String)
	default:
		return nil
	}
	if !ok {
		return fmt.Errorf("%s cannot hold %s", t, spec)
	}
	return nil
}

// convertArg converts a validated generic value into a Go value of type t.
func convertArg(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	if t.Kind() == reflect.Interface {
		rv := reflect.ValueOf(v)
		if !rv.Type().Implements(t) {
			return reflect.Value{}, fmt.Errorf("cannot use %s as %s", rv.Type(), t)
		}
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}

	ptr := reflect.New(t)
	if err := Decode(v, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

// Decode converts a generic value (as found in params and results) into a
// typed Go value such as a struct, using `json` tag names for fields.
func Decode(v any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		Squash:     true,
		DecodeHook: numberHook,
		MatchName: func(mapKey, fieldName string) bool {
			return strings.EqualFold(mapKey, fieldName)
		},
	})
	if err != nil {
		return err
	}
	return dec.Decode(v)
}

var numberType = reflect.TypeOf(json.Number(""))

// numberHook converts `json.Number` and float values for numeric targets,
// accepting integral floats like `3.0` for integer fields as the contract
// does. Values which do not fit the target are an error rather than being
// truncated or wrapped.
func numberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from != numberType && from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := toInt64(data)
		if !ok || !IsIntegral(data) || reflect.Zero(to).OverflowInt(i) {
			return nil, fmt.Errorf("number %v does not fit %s", data, to)
		}
		return i, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, ok := toUint64(data)
		if !ok || reflect.Zero(to).OverflowUint(u) {
			return nil, fmt.Errorf("number %v does not fit %s", data, to)
		}
		return u, nil
	}

	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		return n.Float64()
	case reflect.Interface:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return data, nil
}

func toUint64(v any) (uint64, bool) {
	if n, ok := v.(json.Number); ok {
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return u, true
		}
	}
	i, ok := toInt64(v)
	return uint64(i), ok && i >= 0 && IsIntegral(v)
}
