// Package barristergin mounts Barrister servers on Gin engines and groups.
package barristergin

import (
	"context"

	"github.com/danielgtaylor/barrister"
	"github.com/gin-gonic/gin"
)

type contextKey string

var ginKey contextKey = "barrister/gin/context"

// Handler returns a Gin handler serving the contract. The Gin context is
// available to handlers through `Unwrap`.
func Handler(s *barrister.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), ginKey, c)
		s.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	}
}

// Mount serves the contract with POST requests to `path`.
func Mount(r gin.IRoutes, path string, s *barrister.Server) {
	r.POST(path, Handler(s))
}

// Unwrap returns the Gin context of the current call, or nil when the call
// did not come through Gin.
func Unwrap(ctx context.Context) *gin.Context {
	c, _ := ctx.Value(ginKey).(*gin.Context)
	return c
}

// Param returns a path parameter of the route serving the current call.
func Param(ctx context.Context, name string) string {
	if c := Unwrap(ctx); c != nil {
		return c.Param(name)
	}
	return ""
}
