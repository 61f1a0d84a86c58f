package barrister

import (
	"context"

	"golang.org/x/exp/slices"
)

// Proxy exposes one IDL interface so its functions can be called by their
// short name, e.g. `calc.Call(ctx, "add", 1, 2)` instead of
// `client.Call(ctx, "Calculator.add", 1, 2)`. A proxy made from a batch
// queues calls instead of sending them.
type Proxy struct {
	iface *Interface
	call  func(ctx context.Context, method string, params []any) (any, error)
}

// Proxy returns a proxy for the named interface.
func (c *Client) Proxy(name string) (*Proxy, error) {
	iface, err := proxyInterface(c.contract, name)
	if err != nil {
		return nil, err
	}
	return &Proxy{
		iface: iface,
		call: func(ctx context.Context, method string, params []any) (any, error) {
			return c.Call(ctx, method, params...)
		},
	}, nil
}

// Proxy returns a proxy for the named interface whose calls are queued in
// the batch. Queued calls return a nil result; read results from `Send`.
func (b *Batch) Proxy(name string) (*Proxy, error) {
	iface, err := proxyInterface(b.client.contract, name)
	if err != nil {
		return nil, err
	}
	return &Proxy{
		iface: iface,
		call: func(_ context.Context, method string, params []any) (any, error) {
			return nil, b.Call(method, params...)
		},
	}, nil
}

func proxyInterface(contract *Contract, name string) (*Interface, error) {
	if contract == nil {
		return nil, ErrNoContract
	}
	iface := contract.Interface(name)
	if iface == nil {
		return nil, Errorf(MethodNotFound, "Interface not found: %s", name)
	}
	return iface, nil
}

// Name returns the interface name.
func (p *Proxy) Name() string {
	return p.iface.Name
}

// Functions returns the sorted names of the interface's functions.
func (p *Proxy) Functions() []string {
	names := make([]string, 0, len(p.iface.Functions))
	for _, fn := range p.iface.Functions {
		names = append(names, fn.Name)
	}
	slices.Sort(names)
	return names
}

// Call invokes a function of the interface by its short name.
func (p *Proxy) Call(ctx context.Context, fn string, args ...any) (any, error) {
	method := p.iface.Name + "." + fn
	if p.iface.Function(fn) == nil {
		return nil, Errorf(MethodNotFound, "Function not found: %s", method)
	}
	return p.call(ctx, method, args)
}

// CallInto invokes a function and decodes its result into `out`, which
// should be a pointer, e.g. to a struct with `json` tags.
func (p *Proxy) CallInto(ctx context.Context, out any, fn string, args ...any) error {
	result, err := p.Call(ctx, fn, args...)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return Decode(result, out)
}
