package barrister

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestJSON(t *testing.T) {
	b, err := json.Marshal(Request{ID: "a", Method: "Calculator.add", Params: []any{1, 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": "a", "method": "Calculator.add", "params": [1, 2]}`, string(b))

	// An absent ID stays absent.
	b, err = json.Marshal(Request{Method: IDLMethod})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "method": "barrister-idl"}`, string(b))

	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc": "2.0", "id": 5, "method": "A.b", "params": [1.5]}`), &req))
	assert.Equal(t, json.Number("5"), req.ID)
	assert.Equal(t, "A.b", req.Method)
	assert.Equal(t, []any{json.Number("1.5")}, req.Params)

	// An explicit null ID is kept and written back.
	var nullReq Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc": "2.0", "id": null, "method": "A.b"}`), &nullReq))
	assert.Equal(t, NullID, nullReq.ID)
	b, err = json.Marshal(nullReq)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": null, "method": "A.b"}`, string(b))

	err = json.Unmarshal([]byte(`{"id": 5}`), &req)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, InvalidRequest, e.Code)
}

func TestResponseJSON(t *testing.T) {
	b, err := json.Marshal(Response{ID: 1, Result: nil})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": 1, "result": null}`, string(b))

	b, err = json.Marshal(Response{ID: 1, Result: "ignored", Error: NewError(InvalidParams, "bad", map[string]any{"x": 1})})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": 1, "error": {"code": -32602, "message": "bad", "data": {"x": 1}}}`, string(b))

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc": "2.0", "id": "x", "error": {"code": -32000, "message": "Unknown error"}}`), &resp))
	assert.Equal(t, "x", resp.ID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ServerError, resp.Error.Code)
	assert.Equal(t, "Unknown error", resp.Error.Message)

	var nullResp Response
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc": "2.0", "id": null, "result": true}`), &nullResp))
	assert.Equal(t, NullID, nullResp.ID)
	b, err = json.Marshal(nullResp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": null, "result": true}`, string(b))
}

func TestParseResponseInvalid(t *testing.T) {
	for _, v := range []any{
		"nope",
		map[string]any{"error": "boom"},
		map[string]any{"error": map[string]any{"code": 1.5, "message": "x"}},
	} {
		_, err := ParseResponse(v)
		assert.Error(t, err, "%#v", v)
	}
}

func TestMessage(t *testing.T) {
	single := Single(Request{ID: "1", Method: "A.b"})
	b, err := json.Marshal(single)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": "1", "method": "A.b"}`, string(b))

	batch := BatchOf(Request{ID: "1", Method: "A.b"}, Request{ID: "2", Method: "A.c"})
	b, err = json.Marshal(batch)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"jsonrpc": "2.0", "id": "1", "method": "A.b"}, {"jsonrpc": "2.0", "id": "2", "method": "A.c"}]`, string(b))

	var msg Message[Request]
	require.NoError(t, json.Unmarshal(b, &msg))
	assert.True(t, msg.IsBatch)
	require.Len(t, msg.Items, 2)
	assert.Equal(t, "A.c", msg.Items[1].Method)

	require.NoError(t, json.Unmarshal([]byte(` {"id": 1, "method": "A.b"}`), &msg))
	assert.False(t, msg.IsBatch)
	require.Len(t, msg.Items, 1)

	out, err := ParseResponseMessage([]any{
		map[string]any{"id": "1", "result": true},
		map[string]any{"id": "2", "error": map[string]any{"code": json.Number("7"), "message": "seven"}},
	})
	require.NoError(t, err)
	assert.True(t, out.IsBatch)
	assert.Equal(t, true, out.Items[0].Result)
	assert.Equal(t, ErrorCode(7), out.Items[1].Error.Code)

	_, err = ParseResponseMessage([]any{"bad"})
	assert.Error(t, err)
}
