package barrister

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Func is the generic form of a handler function: it receives positional
// params which already passed contract validation and returns a result which
// will be validated against the function's return type. Return an `*Error`
// to send a domain error to the caller unmodified; any other error is logged
// and replaced by a generic server error.
type Func func(ctx context.Context, params []any) (any, error)

// Methods is an explicit function table for one interface, keyed by the IDL
// function name.
type Methods map[string]Func

// Middleware wraps the invocation of every handler function. Use
// `GetCallInfo` to find out which function is being called.
type Middleware func(next Func) Func

// Middlewares is an ordered chain. The first middleware is outermost.
type Middlewares []Middleware

// Then wraps `f` in the chain.
func (mws Middlewares) Then(f Func) Func {
	if len(mws) == 0 {
		return f
	}
	h := mws[len(mws)-1](f)
	for i := len(mws) - 2; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ServerOption configures a server.
type ServerOption func(*Server)

// WithLogger sets the logger used to report unexpected handler faults. The
// default discards everything.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMiddleware adds middleware around every handler invocation.
func WithMiddleware(mw ...Middleware) ServerOption {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mw...)
	}
}

// WithMaxBodyBytes limits the size of HTTP request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// Server enforces a contract in front of registered handlers. Register all
// handlers with `AddHandler` before serving traffic; after that the server is
// safe for concurrent use.
type Server struct {
	contract     *Contract
	handlers     map[string]Methods
	middlewares  Middlewares
	logger       *zap.Logger
	maxBodyBytes int64

	formatsOnce  sync.Once
	formats      map[string]Format
	contentTypes []string
}

// NewServer creates a server for the given contract.
func NewServer(contract *Contract, opts ...ServerOption) *Server {
	s := &Server{
		contract:     contract,
		handlers:     map[string]Methods{},
		logger:       zap.NewNop(),
		maxBodyBytes: 10 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Contract returns the server's contract.
func (s *Server) Contract() *Contract {
	return s.contract
}

// Use adds middleware around every handler invocation.
func (s *Server) Use(mw ...Middleware) {
	s.middlewares = append(s.middlewares, mw...)
}

// AddHandler binds an implementation to an IDL interface. The implementation
// is either a `Methods` table or any value whose exported methods match the
// interface's functions, e.g. `add` is served by a method `Add`. Reflected
// methods look like:
//
//	func (c *Calc) Add(ctx context.Context, a, b int) (int, error)
//
// The context param is optional, and the result may be omitted when the
// function only returns an error. The function table is built once here.
// Functions the implementation lacks are reported per call as not
// implemented.
func (s *Server) AddHandler(iface string, impl any) error {
	i := s.contract.Interface(iface)
	if i == nil {
		return fmt.Errorf("cannot add handler: interface %q not found in contract", iface)
	}
	methods, err := methodsOf(s.contract, i, impl)
	if err != nil {
		return fmt.Errorf("cannot add handler for %s: %w", iface, err)
	}
	s.handlers[iface] = methods
	return nil
}

// Handle processes a single request and always returns a response.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	resp := &Response{JSONRPC: JSONRPCVersion, ID: req.ID}
	result, err := s.call(ctx, req)
	if err != nil {
		resp.Error = err
	} else {
		resp.Result = result
	}
	return resp
}

// HandleMessage processes a single request or a batch. Batch items are
// independent of one another and the output order matches the input order.
func (s *Server) HandleMessage(ctx context.Context, msg Message[Request]) Message[Response] {
	out := Message[Response]{IsBatch: msg.IsBatch, Items: make([]Response, len(msg.Items))}
	for i := range msg.Items {
		out.Items[i] = *s.Handle(ctx, &msg.Items[i])
	}
	if msg.IsBatch && len(msg.Items) == 0 {
		return Single(Response{
			JSONRPC: JSONRPCVersion,
			Error:   NewError(InvalidRequest, "Empty batch"),
		})
	}
	return out
}

// HandleValue processes an already decoded payload: either a single request
// object or an array of them. It returns the generic response value to
// encode.
func (s *Server) HandleValue(ctx context.Context, v any) any {
	isBatch, items := splitMessage(v)
	if isBatch && len(items) == 0 {
		return errorValue(nil, NewError(InvalidRequest, "Empty batch"))
	}

	out := make([]any, len(items))
	for i, item := range items {
		req, err := ParseRequest(item)
		if err != nil {
			out[i] = errorValue(req.ID, err)
			continue
		}
		out[i] = s.Handle(ctx, &req).Value()
	}

	if isBatch {
		return out
	}
	return out[0]
}

// HandleBytes decodes a payload with the given format and processes it.
// Undecodable input produces a parse error response with no ID.
func (s *Server) HandleBytes(ctx context.Context, data []byte, f Format) any {
	var v any
	if err := f.Unmarshal(data, &v); err != nil {
		return errorValue(nil, Errorf(ParseError, "Unable to parse request: %v", err))
	}
	return s.HandleValue(ctx, v)
}

func errorValue(id any, err *Error) any {
	r := &Response{JSONRPC: JSONRPCVersion, ID: id, Error: err}
	return r.Value()
}

// call runs the request state machine to a terminal outcome.
func (s *Server) call(ctx context.Context, req *Request) (any, *Error) {
	if req.Method == "" {
		return nil, NewError(InvalidRequest, "Missing method")
	}

	// Introspection works even when nothing else does.
	if req.Method == IDLMethod {
		return s.contract.IDL(), nil
	}

	iface, fn, err := s.contract.ValidateRequest(req.Method, req.Params)
	if err != nil {
		e, _ := AsError(err)
		return nil, e
	}

	methods, ok := s.handlers[iface.Name]
	if !ok {
		return nil, Errorf(ServerError, "No handler bound for interface: %s", iface.Name)
	}
	f, ok := methods[fn.Name]
	if !ok || f == nil {
		return nil, Errorf(ServerError, "Function '%s' is not implemented by the handler bound to %s",
			req.Method, iface.Name)
	}

	ctx = context.WithValue(ctx, callInfoKey, &CallInfo{
		RequestID: req.ID,
		Method:    req.Method,
		Interface: iface.Name,
		Function:  fn.Name,
	})

	result, err := s.invoke(ctx, s.middlewares.Then(f), req.Params)
	if err != nil {
		if e, ok := AsError(err); ok && e != nil {
			return nil, e
		}
		s.logFault(req, err)
		return nil, NewError(ServerError, "Unknown error")
	}

	result, err = normalize(result)
	if err != nil {
		s.logFault(req, err)
		return nil, NewError(ServerError, "Unknown error")
	}

	if err := s.contract.Validate("result", fn.Returns, result); err != nil {
		return nil, contractError(InvalidResponse, req.Method, err)
	}

	return result, nil
}

// panicError carries a recovered panic and its stack to the logger.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (s *Server) invoke(ctx context.Context, f Func, params []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return f(ctx, params)
}

// logFault records the details of an unexpected handler failure. None of
// this is ever sent to the caller.
func (s *Server) logFault(req *Request, err error) {
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.Any("id", req.ID),
		zap.Error(err),
	}
	if p, ok := err.(*panicError); ok {
		fields = append(fields, zap.ByteString("stack", p.stack))
	}
	s.logger.Error("Handler failed", fields...)
}

func paramPath(p Field, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("params[%d]", i)
}

// contractError wraps a validation failure in the code for its context:
// invalid params for input, invalid response for handler output.
func contractError(code ErrorCode, method string, err error) *Error {
	e := Errorf(code, "%s: %s", method, err.Error())
	if code == InvalidParams {
		if d, ok := err.(ErrorDetailer); ok {
			e.Data = d.ErrorDetail()
		}
	}
	return e
}
