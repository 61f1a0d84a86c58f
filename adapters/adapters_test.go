// Package adapters_test runs basic verification tests on all adapters.
package adapters_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/barrister"
	"github.com/danielgtaylor/barrister/adapters/barristerchi"
	"github.com/danielgtaylor/barrister/adapters/barristerfiber"
	"github.com/danielgtaylor/barrister/adapters/barristergin"
	"github.com/danielgtaylor/barrister/adapters/barristerhttprouter"
	"github.com/danielgtaylor/barrister/adapters/barristermux"
	"github.com/danielgtaylor/barrister/barristertest"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/mux"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantIDL = `[
	{"type": "interface", "name": "Tenant", "comment": "", "functions": [
		{"name": "whoami", "comment": "", "params": [],
		 "returns": {"type": "string", "optional": false, "is_array": false}},
		{"name": "add", "comment": "", "params": [
			{"name": "a", "type": "int", "optional": false, "is_array": false},
			{"name": "b", "type": "int", "optional": false, "is_array": false}
		 ], "returns": {"type": "int", "optional": false, "is_array": false}}
	]}
]`

// tenant reports the route parameter it was called through.
type tenant struct {
	param func(ctx context.Context, name string) string
}

func (t tenant) Whoami(ctx context.Context) string {
	return t.param(ctx, "tenant")
}

func (tenant) Add(a, b int) int {
	return a + b
}

func newServer(t *testing.T, param func(context.Context, string) string) *barrister.Server {
	return barristertest.New(t, tenantIDL, map[string]any{"Tenant": tenant{param: param}}).Server()
}

func serveHTTP(t *testing.T, h http.Handler) string {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}

func testAdapter(t *testing.T, url string) {
	t.Helper()

	ctx := context.Background()
	client, err := barrister.NewClient(ctx, barrister.NewHTTPTransport(url+"/rpc/acme"))
	require.NoError(t, err)

	who, err := client.Call(ctx, "Tenant.whoami")
	require.NoError(t, err)
	assert.Equal(t, "acme", who)

	sum, err := client.Call(ctx, "Tenant.add", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), sum)

	b := client.StartBatch()
	require.NoError(t, b.Call("Tenant.add", 2, 2))
	require.NoError(t, b.Call("Tenant.whoami"))
	results, err := b.Send(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, json.Number("4"), results[0].Value)
	assert.Equal(t, "acme", results[1].Value)
}

func TestAdapters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, adapter := range []struct {
		name  string
		serve func(t *testing.T) string
	}{
		{"chi", func(t *testing.T) string {
			r := chi.NewMux()
			barristerchi.Mount(r, "/rpc/{tenant}", newServer(t, barristerchi.Param))
			return serveHTTP(t, r)
		}},
		{"gin", func(t *testing.T) string {
			r := gin.New()
			barristergin.Mount(r, "/rpc/:tenant", newServer(t, barristergin.Param))
			return serveHTTP(t, r)
		}},
		{"httprouter", func(t *testing.T) string {
			r := httprouter.New()
			barristerhttprouter.Mount(r, "/rpc/:tenant", newServer(t, barristerhttprouter.Param))
			return serveHTTP(t, r)
		}},
		{"mux", func(t *testing.T) string {
			r := mux.NewRouter()
			barristermux.Mount(r, "/rpc/{tenant}", newServer(t, barristermux.Param))
			return serveHTTP(t, r)
		}},
		{"fiber", func(t *testing.T) string {
			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			barristerfiber.Mount(app, "/rpc/:tenant", newServer(t, barristerfiber.Param))

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			go func() {
				_ = app.Listener(ln)
			}()
			t.Cleanup(func() {
				_ = app.Shutdown()
			})
			return "http://" + ln.Addr().String()
		}},
	} {
		t.Run(adapter.name, func(t *testing.T) {
			testAdapter(t, adapter.serve(t))
		})
	}
}
