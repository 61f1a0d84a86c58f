package barristertest

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/barrister"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idl = `
- type: struct
  name: Greeting
  fields:
    - {name: message, type: string}
    - {name: length, type: int}
- type: interface
  name: Greeter
  functions:
    - name: greet
      params:
        - {name: name, type: string}
      returns: {type: Greeting}
    - name: names
      params:
        - {name: names, type: string, is_array: true}
      returns: {type: string, is_array: true}
`

type greeting struct {
	Message string `json:"message"`
	Length  int    `json:"length"`
}

type greeter struct{}

func (greeter) Greet(ctx context.Context, name string) (*greeting, error) {
	if name == "" {
		return nil, barrister.NewError(100, "Name required")
	}
	msg := "Hello, " + name
	return &greeting{Message: msg, Length: len(msg)}, nil
}

func TestBarristerTestUtils(t *testing.T) {
	api := New(t, idl, map[string]any{"Greeter": greeter{}})

	assert.Equal(t, []string{"Greeter"}, api.Client().Contract().Interfaces())
	assert.NotNil(t, api.Server().Contract().Struct("Greeting"))

	result, err := api.Call("Greeter.greet", "world")
	require.NoError(t, err)
	var g greeting
	require.NoError(t, barrister.Decode(result, &g))
	assert.Equal(t, greeting{Message: "Hello, world", Length: 12}, g)

	_, err = api.Call("Greeter.greet", "")
	e, ok := barrister.AsError(err)
	require.True(t, ok)
	assert.Equal(t, barrister.ErrorCode(100), e.Code)

	_, err = api.Call("Greeter.names", []string{"a"})
	e, ok = barrister.AsError(err)
	require.True(t, ok)
	assert.Equal(t, barrister.ServerError, e.Code)
}

func TestDo(t *testing.T) {
	api := New(t, idl, map[string]any{"Greeter": greeter{}})

	w := api.Do(`{"jsonrpc": "2.0", "id": 1, "method": "Greeter.greet", "params": ["Bob"]}`,
		"Accept: application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": 1, "result": {"message": "Hello, Bob", "length": 10}}`, w.Body.String())

	w = api.Do(`{"jsonrpc": "2.0", "id": 1, "method": "Greeter.greet", "params": ["Bob"]}`,
		"Content-Type: application/xml")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestEchoTransport(t *testing.T) {
	api := New(t, idl, nil)

	client, err := barrister.NewClient(context.Background(), EchoTransport,
		barrister.WithContract(api.Server().Contract()))
	require.NoError(t, err)

	result, err := client.Call(context.Background(), "Greeter.names", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, result)

	_, err = client.Call(context.Background(), "Greeter.greet", "x")
	e, ok := barrister.AsError(err)
	require.True(t, ok)
	assert.Equal(t, barrister.InvalidResponse, e.Code)

	b := client.StartBatch()
	require.NoError(t, b.Call("Greeter.names", []string{"c"}))
	require.NoError(t, b.Call("Greeter.names", []string{}))
	results, err := b.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"c"}, results[0].Value)
	assert.Equal(t, []any{}, results[1].Value)
}

func TestEchoTransportNumbers(t *testing.T) {
	msg, err := EchoTransport.Send(context.Background(), barrister.Single(barrister.Request{
		ID:     "1",
		Method: "A.b",
		Params: []any{json.Number("1"), json.Number("2")},
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, msg.Items[0].Result)
}
