// Package barristertest provides testing utilities for Barrister services. A
// test API wires a server and a client together in-process, passing every
// message through the JSON codec exactly as a network hop would.
package barristertest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"strings"

	"github.com/danielgtaylor/barrister"
)

// TB is a subset of the `testing.TB` interface used by the test API and
// implemented by the `*testing.T` and `*testing.B` structs.
type TB interface {
	Helper()
	Log(args ...any)
	Logf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// TestAPI is an in-process server with a ready client.
type TestAPI interface {
	// Server returns the server handling calls.
	Server() *barrister.Server

	// Client returns a client bound to the server, which loaded its contract
	// with a `barrister-idl` call.
	Client() *barrister.Client

	// Call invokes a function through the client.
	Call(method string, params ...any) (any, error)

	// Do sends a raw HTTP POST body to the server. Args, if provided, should
	// be string headers like `Content-Type: application/json`.
	Do(body string, headers ...string) *httptest.ResponseRecorder
}

type testAPI struct {
	tb     TB
	server *barrister.Server
	client *barrister.Client
}

func (a *testAPI) Server() *barrister.Server {
	return a.server
}

func (a *testAPI) Client() *barrister.Client {
	return a.client
}

func (a *testAPI) Call(method string, params ...any) (any, error) {
	a.tb.Helper()
	return a.client.Call(context.Background(), method, params...)
}

func (a *testAPI) Do(body string, headers ...string) *httptest.ResponseRecorder {
	a.tb.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, h := range headers {
		name, value, _ := strings.Cut(h, ":")
		req.Header.Set(name, strings.TrimSpace(value))
	}

	dump, _ := httputil.DumpRequest(req, true)
	a.tb.Log("Making request:\n" + strings.TrimSpace(string(dump)))

	resp := httptest.NewRecorder()
	a.server.ServeHTTP(resp, req)

	dump, _ = httputil.DumpResponse(resp.Result(), resp.Body.Len() > 0)
	a.tb.Log("Got response:\n" + strings.TrimSpace(string(dump)))

	return resp
}

// New creates a server from an IDL document (JSON or YAML), binds each
// handler to the interface of the same name and connects a client over a
// loopback transport. Any setup failure fails the test immediately.
func New(tb TB, idl string, handlers map[string]any, opts ...barrister.ServerOption) TestAPI {
	tb.Helper()

	contract, err := barrister.ParseContract([]byte(idl))
	if err != nil {
		tb.Fatalf("unable to parse IDL: %v", err)
	}

	server := barrister.NewServer(contract, opts...)
	for name, impl := range handlers {
		if err := server.AddHandler(name, impl); err != nil {
			tb.Fatalf("unable to add handler: %v", err)
		}
	}

	client, err := barrister.NewClient(context.Background(), Loopback(tb, server))
	if err != nil {
		tb.Fatalf("unable to create client: %v", err)
	}

	return &testAPI{tb: tb, server: server, client: client}
}

// Loopback returns a transport which hands messages straight to the server,
// encoding and decoding them as JSON and logging both directions.
func Loopback(tb TB, server *barrister.Server) barrister.Transport {
	return barrister.TransportFunc(func(ctx context.Context, msg barrister.Message[barrister.Request]) (barrister.Message[barrister.Response], error) {
		in := &bytes.Buffer{}
		if err := barrister.DefaultJSONFormat.Marshal(in, msg.Value()); err != nil {
			return barrister.Message[barrister.Response]{}, err
		}
		tb.Logf("Sending: %s", strings.TrimSpace(in.String()))

		result := server.HandleBytes(ctx, in.Bytes(), barrister.DefaultJSONFormat)

		out := &bytes.Buffer{}
		if err := barrister.DefaultJSONFormat.Marshal(out, result); err != nil {
			return barrister.Message[barrister.Response]{}, err
		}
		tb.Logf("Received: %s", strings.TrimSpace(out.String()))

		var v any
		if err := barrister.DefaultJSONFormat.Unmarshal(out.Bytes(), &v); err != nil {
			return barrister.Message[barrister.Response]{}, fmt.Errorf("loopback decode: %w", err)
		}
		return barrister.ParseResponseMessage(v)
	})
}

// EchoTransport answers every request with its own params as the result: a
// single param is echoed as-is, otherwise the whole param list is. It never
// talks to a server, which makes it handy for exercising client-side
// validation on its own.
var EchoTransport = barrister.TransportFunc(func(ctx context.Context, msg barrister.Message[barrister.Request]) (barrister.Message[barrister.Response], error) {
	out := barrister.Message[barrister.Response]{IsBatch: msg.IsBatch}
	for _, req := range msg.Items {
		var result any = req.Params
		if len(req.Params) == 1 {
			result = req.Params[0]
		}
		out.Items = append(out.Items, barrister.Response{
			JSONRPC: barrister.JSONRPCVersion,
			ID:      req.ID,
			Result:  result,
		})
	}
	return out, nil
})
