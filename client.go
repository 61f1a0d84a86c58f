package barrister

import (
	"context"
	"fmt"
)

// Transport sends a request message (single or batch) and returns the
// peer's response message. Transports own serialization, network I/O,
// timeouts and cancellation; failures of the exchange itself should be
// reported as errors such as `*TransportError`, never as `*Error`.
type Transport interface {
	Send(ctx context.Context, msg Message[Request]) (Message[Response], error)
}

// TransportFunc adapts a function into a `Transport`.
type TransportFunc func(ctx context.Context, msg Message[Request]) (Message[Response], error)

// Send calls f(ctx, msg).
func (f TransportFunc) Send(ctx context.Context, msg Message[Request]) (Message[Response], error) {
	return f(ctx, msg)
}

// ClientOption configures a client.
type ClientOption func(*Client)

// WithValidateRequest enables or disables checking params against the
// contract before anything is sent. Enabled by default.
func WithValidateRequest(enabled bool) ClientOption {
	return func(c *Client) {
		c.validateRequest = enabled
	}
}

// WithValidateResult enables or disables checking results against the
// contract after they are received. Enabled by default.
func WithValidateResult(enabled bool) ClientOption {
	return func(c *Client) {
		c.validateResult = enabled
	}
}

// WithIDGenerator sets the request ID generator. Defaults to random UUIDs.
func WithIDGenerator(g IDGenerator) ClientOption {
	return func(c *Client) {
		c.ids = g
	}
}

// WithContract uses a known contract instead of asking the server for its
// IDL when the client is created.
func WithContract(contract *Contract) ClientOption {
	return func(c *Client) {
		c.contract = contract
	}
}

// Client calls functions on a remote server, enforcing the same contract
// the server enforces. A client may be used by many goroutines at once as
// long as its transport and ID generator allow it; batches may not.
type Client struct {
	transport       Transport
	contract        *Contract
	ids             IDGenerator
	validateRequest bool
	validateResult  bool
}

// NewClient creates a client. Unless `WithContract` is given, the server's
// IDL is fetched with a `barrister-idl` call.
func NewClient(ctx context.Context, transport Transport, opts ...ClientOption) (*Client, error) {
	c := &Client{
		transport:       transport,
		ids:             UUIDGenerator{},
		validateRequest: true,
		validateResult:  true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.contract == nil {
		contract, err := c.FetchContract(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to load contract: %w", err)
		}
		c.contract = contract
	}

	return c, nil
}

// Contract returns the contract the client validates against.
func (c *Client) Contract() *Contract {
	return c.contract
}

// FetchContract asks the server for its IDL and parses it.
func (c *Client) FetchContract(ctx context.Context) (*Contract, error) {
	req := &Request{JSONRPC: JSONRPCVersion, ID: c.ids.NewID(), Method: IDLMethod}
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	idl, ok := resp.Result.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected array of declarations, got %s", ErrInvalidIDL, KindOf(resp.Result))
	}
	return NewContract(idl)
}

// NewRequest builds a request envelope with a fresh ID. Params are converted
// to the generic value model first, so Go structs and typed slices are
// accepted. When request validation is enabled, the method and params are
// checked against the contract and an `*Error` is returned on failure.
func (c *Client) NewRequest(method string, params ...any) (*Request, error) {
	values := make([]any, len(params))
	for i, p := range params {
		v, err := normalize(p)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		values[i] = v
	}

	if c.validateRequest && method != IDLMethod {
		if c.contract == nil {
			return nil, ErrNoContract
		}
		if _, _, err := c.contract.ValidateRequest(method, values); err != nil {
			return nil, err
		}
	}

	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      c.ids.NewID(),
		Method:  method,
		Params:  values,
	}, nil
}

// Call invokes a remote function and returns its result. Any failure the
// server reports, whether a protocol, contract or application error, is
// returned as an `*Error`.
func (c *Client) Call(ctx context.Context, method string, params ...any) (any, error) {
	req, err := c.NewRequest(method, params...)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	return c.result(req, resp)
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	msg, err := c.transport.Send(ctx, Single(*req))
	if err != nil {
		return nil, err
	}
	if len(msg.Items) != 1 {
		return nil, fmt.Errorf("expected a single response, got %d", len(msg.Items))
	}
	return &msg.Items[0], nil
}

// result turns a response into a value or an error, validating successful
// results when enabled.
func (c *Client) result(req *Request, resp *Response) (any, error) {
	if resp.Error != nil {
		return nil, resp.Error
	}

	if c.validateResult && req.Method != IDLMethod {
		if c.contract == nil {
			return nil, ErrNoContract
		}
		if err := c.contract.ValidateResult(req.Method, resp.Result); err != nil {
			return nil, err
		}
	}

	return resp.Result, nil
}
