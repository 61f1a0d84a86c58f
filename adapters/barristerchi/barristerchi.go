// Package barristerchi mounts Barrister servers on chi routers.
package barristerchi

import (
	"context"

	"github.com/danielgtaylor/barrister"
	"github.com/go-chi/chi/v5"
)

// Mount serves the contract with POST requests to `path`. The path may
// contain chi URL parameters, which handlers read with `Param`.
func Mount(r chi.Router, path string, s *barrister.Server) {
	r.Post(path, s.ServeHTTP)
}

// Param returns a URL parameter of the route serving the current call.
func Param(ctx context.Context, name string) string {
	return chi.URLParamFromCtx(ctx, name)
}
