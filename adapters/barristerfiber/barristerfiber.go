// Package barristerfiber mounts Barrister servers on Fiber apps.
package barristerfiber

import (
	"context"

	"github.com/danielgtaylor/barrister"
	"github.com/gofiber/fiber/v2"
)

type contextKey string

var fiberKey contextKey = "barrister/fiber/context"

// Handler returns a Fiber handler serving the contract. Fiber reuses its
// contexts, so the one returned by `Unwrap` must not be kept after the call
// returns.
func Handler(s *barrister.Server) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.WithValue(c.UserContext(), fiberKey, c)
		reply := s.Exchange(ctx, c.Get(fiber.HeaderContentType), c.Get(fiber.HeaderAccept), c.Body())
		c.Set(fiber.HeaderContentType, reply.ContentType)
		return c.Status(reply.Status).Send(reply.Body)
	}
}

// Mount serves the contract with POST requests to `path`.
func Mount(r fiber.Router, path string, s *barrister.Server) {
	r.Post(path, Handler(s))
}

// Unwrap returns the Fiber context of the current call, or nil when the call
// did not come through Fiber.
func Unwrap(ctx context.Context) *fiber.Ctx {
	c, _ := ctx.Value(fiberKey).(*fiber.Ctx)
	return c
}

// Param returns a route parameter of the route serving the current call.
func Param(ctx context.Context, name string) string {
	if c := Unwrap(ctx); c != nil {
		return c.Params(name)
	}
	return ""
}
