// Package barristermux mounts Barrister servers on gorilla/mux routers.
package barristermux

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/barrister"
	"github.com/gorilla/mux"
)

type contextKey string

var varsKey contextKey = "barrister/mux/vars"

// Mount serves the contract with POST requests to `path` and returns the
// route so it can be further constrained, e.g. by host.
func Mount(r *mux.Router, path string, s *barrister.Server) *mux.Route {
	return r.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := context.WithValue(req.Context(), varsKey, mux.Vars(req))
		s.ServeHTTP(w, req.WithContext(ctx))
	})).Methods(http.MethodPost)
}

// Param returns a route variable of the route serving the current call.
func Param(ctx context.Context, name string) string {
	if vars, ok := ctx.Value(varsKey).(map[string]string); ok {
		return vars[name]
	}
	return ""
}
