package barrister

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Contract is the parsed, queryable form of an IDL document. It is built once
// and never modified afterward, so it is safe to share between any number of
// concurrent calls.
//
// Referential integrity is not checked eagerly: a type name which resolves to
// nothing is reported when a value is validated against it. Use `Check` to
// get a full report up front.
type Contract struct {
	idl        []any
	interfaces map[string]*Interface
	structs    map[string]*Struct
	enums      map[string]*Enum
	meta       map[string]any
}

// NewContract builds a contract from an ordered sequence of IDL declaration
// records, as produced by `ParseIDL` or returned by a server's
// `barrister-idl` call.
func NewContract(idl []any) (*Contract, error) {
	c := &Contract{
		idl:        idl,
		interfaces: map[string]*Interface{},
		structs:    map[string]*Struct{},
		enums:      map[string]*Enum{},
		meta:       map[string]any{},
	}

	for i, raw := range idl {
		decl, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: declaration %d is not an object", ErrInvalidIDL, i)
		}
		kind, _ := decl["type"].(string)

		switch kind {
		case DeclInterface:
			iface := &Interface{}
			if err := decodeDecl(decl, iface); err != nil {
				return nil, fmt.Errorf("%w: interface %d: %v", ErrInvalidIDL, i, err)
			}
			iface.functions = make(map[string]*Function, len(iface.Functions))
			for _, fn := range iface.Functions {
				iface.functions[fn.Name] = fn
			}
			c.interfaces[iface.Name] = iface
		case DeclStruct:
			s := &Struct{}
			if err := decodeDecl(decl, s); err != nil {
				return nil, fmt.Errorf("%w: struct %d: %v", ErrInvalidIDL, i, err)
			}
			c.structs[s.Name] = s
		case DeclEnum:
			e := &Enum{}
			if err := decodeDecl(decl, e); err != nil {
				return nil, fmt.Errorf("%w: enum %d: %v", ErrInvalidIDL, i, err)
			}
			e.values = make(map[string]struct{}, len(e.Values))
			for _, v := range e.Values {
				e.values[v.Value] = struct{}{}
			}
			c.enums[e.Name] = e
		case DeclMeta:
			for k, v := range decl {
				if k != "type" {
					c.meta[k] = v
				}
			}
		default:
			return nil, fmt.Errorf("%w: declaration %d has unknown type %q", ErrInvalidIDL, i, kind)
		}
	}

	for _, s := range c.structs {
		if err := c.resolveFields(s); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// resolveFields walks the `extends` chain of `s` once and caches the
// effective field list.
func (c *Contract) resolveFields(s *Struct) error {
	chain := []string{s.Name}
	fields := append([]Field{}, s.Fields...)

	for parent := s.Extends; parent != ""; {
		if slices.Contains(chain, parent) {
			return fmt.Errorf("%w: %s -> %s", ErrExtendsCycle, strings.Join(chain, " -> "), parent)
		}
		chain = append(chain, parent)

		p, ok := c.structs[parent]
		if !ok {
			s.missing = parent
			break
		}
		fields = append(fields, p.Fields...)
		parent = p.Extends
	}

	s.effective = fields
	s.fieldSet = make(map[string]struct{}, len(fields))
	for _, f := range fields {
		s.fieldSet[f.Name] = struct{}{}
	}
	return nil
}

// IDL returns the raw declaration sequence the contract was built from.
func (c *Contract) IDL() []any {
	return c.idl
}

// Meta returns the free-form metadata of the IDL, such as the checksum and
// the version of the tool which generated it.
func (c *Contract) Meta() map[string]any {
	return c.meta
}

// Checksum returns the IDL checksum from the metadata, if present.
func (c *Contract) Checksum() string {
	s, _ := c.meta["checksum"].(string)
	return s
}

// Interfaces returns the sorted names of all declared interfaces.
func (c *Contract) Interfaces() []string {
	names := maps.Keys(c.interfaces)
	slices.Sort(names)
	return names
}

// Interface returns the named interface or nil.
func (c *Contract) Interface(name string) *Interface {
	return c.interfaces[name]
}

// Struct returns the named struct or nil.
func (c *Contract) Struct(name string) *Struct {
	return c.structs[name]
}

// Enum returns the named enum or nil.
func (c *Contract) Enum(name string) *Enum {
	return c.enums[name]
}

// Resolve splits a method like `Calculator.add` into its interface and
// function. There is no unscoped function namespace: a method without
// exactly one separator is never found.
func (c *Contract) Resolve(method string) (*Interface, *Function, error) {
	ifaceName, fnName, ok := strings.Cut(method, ".")
	if !ok || ifaceName == "" || fnName == "" || strings.Contains(fnName, ".") {
		return nil, nil, Errorf(MethodNotFound, "Method not found: %s", method)
	}

	iface := c.interfaces[ifaceName]
	if iface == nil {
		return nil, nil, Errorf(MethodNotFound, "Interface not found: %s", ifaceName)
	}

	fn := iface.functions[fnName]
	if fn == nil {
		return nil, nil, Errorf(MethodNotFound, "Function not found: %s", method)
	}

	return iface, fn, nil
}

// Check eagerly verifies that every referenced type name resolves. It returns
// one error per unresolved reference, in a stable order. Validation does not
// depend on this; it is a diagnostic for IDL authors.
func (c *Contract) Check() []error {
	var errs []error
	known := func(name string) bool {
		if isPrimitive(name) {
			return true
		}
		_, s := c.structs[name]
		_, e := c.enums[name]
		return s || e
	}

	for _, name := range c.Interfaces() {
		iface := c.interfaces[name]
		for _, fn := range iface.Functions {
			for _, p := range fn.Params {
				if !known(p.Type) {
					errs = append(errs, fmt.Errorf("%s.%s: param %s has unknown type %q", name, fn.Name, p.Name, p.Type))
				}
			}
			if !known(fn.Returns.Type) {
				errs = append(errs, fmt.Errorf("%s.%s: returns unknown type %q", name, fn.Name, fn.Returns.Type))
			}
		}
	}

	structNames := maps.Keys(c.structs)
	slices.Sort(structNames)
	for _, name := range structNames {
		s := c.structs[name]
		if s.Extends != "" && c.structs[s.Extends] == nil {
			errs = append(errs, fmt.Errorf("struct %s extends unknown struct %q", name, s.Extends))
		}
		for _, f := range s.Fields {
			if !known(f.Type) {
				errs = append(errs, fmt.Errorf("struct %s: field %s has unknown type %q", name, f.Name, f.Type))
			}
		}
	}

	return errs
}
