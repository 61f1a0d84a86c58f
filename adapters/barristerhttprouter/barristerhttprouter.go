// Package barristerhttprouter mounts Barrister servers on httprouter.
package barristerhttprouter

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/barrister"
	"github.com/julienschmidt/httprouter"
)

// Mount serves the contract with POST requests to `path`.
func Mount(r *httprouter.Router, path string, s *barrister.Server) {
	r.Handler(http.MethodPost, path, s)
}

// Param returns a named path parameter of the route serving the current
// call.
func Param(ctx context.Context, name string) string {
	return httprouter.ParamsFromContext(ctx).ByName(name)
}
