package barrister

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// JSONRPCVersion is the only protocol version spoken.
const JSONRPCVersion = "2.0"

// Request is a JSON-RPC request envelope. The ID is opaque and echoed back in
// the response; a request without an ID gets a response without one, and an
// explicit null ID is kept as `NullID`.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// NullID is the ID of an envelope which carried an explicit `"id": null`. It
// is written back as null, while a missing ID stays missing.
var NullID any = nullID{}

type nullID struct{}

// idValue returns the ID as written on the wire and whether to write it.
func idValue(id any) (any, bool) {
	switch id {
	case nil:
		return nil, false
	case NullID:
		return nil, true
	}
	return id, true
}

// idOf reads the ID of a decoded envelope, telling an explicit null apart
// from a missing key.
func idOf(m map[string]any) any {
	id, ok := m["id"]
	if ok && id == nil {
		return NullID
	}
	return id
}

// Response is a JSON-RPC response envelope. Exactly one of `Result` or
// `Error` is sent; a nil `Error` means success, even if `Result` is null.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result"`
	Error   *Error `json:"error,omitempty"`
}

// Value returns the request as a generic map suitable for any format.
func (r *Request) Value() any {
	m := map[string]any{
		"jsonrpc": JSONRPCVersion,
		"method":  r.Method,
	}
	if id, ok := idValue(r.ID); ok {
		m["id"] = id
	}
	if r.Params != nil {
		m["params"] = r.Params
	}
	return m
}

// MarshalJSON always writes a version and omits absent fields.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

// Value returns the response as a generic map suitable for any format.
func (r *Response) Value() any {
	m := map[string]any{"jsonrpc": JSONRPCVersion}
	if id, ok := idValue(r.ID); ok {
		m["id"] = id
	}
	if r.Error != nil {
		e := map[string]any{
			"code":    int(r.Error.Code),
			"message": r.Error.Message,
		}
		if r.Error.Data != nil {
			e["data"] = r.Error.Data
		}
		m["error"] = e
	} else {
		m["result"] = r.Result
	}
	return m
}

// MarshalJSON writes either `result` or `error`, never both.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

// UnmarshalJSON parses a response envelope.
func (r *Response) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	parsed, err := ParseResponse(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalJSON parses a request envelope.
func (r *Request) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	parsed, perr := ParseRequest(v)
	if perr != nil {
		return perr
	}
	*r = parsed
	return nil
}

// ParseRequest converts a decoded value into a request. The only hard
// requirement is a `method` string; everything else is checked later
// against the contract.
func ParseRequest(v any) (Request, *Error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Request{}, NewError(InvalidRequest, "Request must be an object")
	}

	req := Request{JSONRPC: JSONRPCVersion, ID: idOf(m)}
	if version, ok := m["jsonrpc"].(string); ok {
		req.JSONRPC = version
	}

	method, ok := m["method"].(string)
	if !ok || method == "" {
		return req, NewError(InvalidRequest, "Missing method")
	}
	req.Method = method

	switch params := m["params"].(type) {
	case nil:
	case []any:
		req.Params = params
	default:
		return req, Errorf(InvalidRequest, "params must be an array, got %s", KindOf(params))
	}

	return req, nil
}

// ParseResponse converts a decoded value into a response.
func ParseResponse(v any) (Response, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Response{}, fmt.Errorf("response must be an object, got %s", KindOf(v))
	}

	resp := Response{JSONRPC: JSONRPCVersion, ID: idOf(m), Result: m["result"]}
	if raw, ok := m["error"]; ok && raw != nil {
		em, ok := raw.(map[string]any)
		if !ok {
			return resp, fmt.Errorf("response error must be an object, got %s", KindOf(raw))
		}
		e := &Error{Data: em["data"]}
		if !IsIntegral(em["code"]) {
			return resp, fmt.Errorf("response error code must be an integer")
		}
		code, _ := toInt64(em["code"])
		e.Code = ErrorCode(code)
		e.Message, _ = em["message"].(string)
		resp.Error = e
	}
	return resp, nil
}

// Message holds either a single envelope or a batch of them.
type Message[T any] struct {
	IsBatch bool
	Items   []T
}

// Single wraps one item as a non-batch message.
func Single[T any](item T) Message[T] {
	return Message[T]{Items: []T{item}}
}

// BatchOf wraps items as a batch message.
func BatchOf[T any](items ...T) Message[T] {
	return Message[T]{IsBatch: true, Items: items}
}

type valuer interface {
	Value() any
}

// Value returns the generic form: an array for batches, otherwise the single
// item.
func (m Message[T]) Value() any {
	values := make([]any, len(m.Items))
	for i := range m.Items {
		var item any = &m.Items[i]
		if v, ok := item.(valuer); ok {
			values[i] = v.Value()
		} else {
			values[i] = m.Items[i]
		}
	}
	if m.IsBatch {
		return values
	}
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// MarshalJSON writes an array for batches, otherwise the single item.
func (m Message[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Value())
}

// UnmarshalJSON accepts either a single object or an array of them.
func (m *Message[T]) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		m.IsBatch = true
		m.Items = nil
		return json.Unmarshal(trimmed, &m.Items)
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	m.IsBatch = false
	m.Items = []T{item}
	return nil
}

// splitMessage reports whether a decoded value is a batch and returns its
// items.
func splitMessage(v any) (bool, []any) {
	if items, ok := v.([]any); ok {
		return true, items
	}
	return false, []any{v}
}

// ParseResponseMessage converts a decoded value into a response message.
func ParseResponseMessage(v any) (Message[Response], error) {
	isBatch, items := splitMessage(v)
	msg := Message[Response]{IsBatch: isBatch, Items: make([]Response, 0, len(items))}
	for i, item := range items {
		resp, err := ParseResponse(item)
		if err != nil {
			if isBatch {
				return msg, fmt.Errorf("batch item %d: %w", i, err)
			}
			return msg, err
		}
		msg.Items = append(msg.Items, resp)
	}
	return msg, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	}
	return 0, false
}

// floatToInt64 truncates f, failing when it is out of the int64 range.
func floatToInt64(f float64) (int64, bool) {
	// float64(math.MaxInt64) rounds up to 2^63, which is already too big.
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
