// Package webapi assembles the Fiber application.
package webapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/andinafx/cambio/infra/initializer"
	"github.com/andinafx/cambio/pkg/config"
	"github.com/andinafx/cambio/webapi/common"
	"github.com/andinafx/cambio/webapi/teller"
)

// SetupApp wires middleware and routes onto a new Fiber app.
func SetupApp(deps *initializer.Deps, cfg *config.App) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "cambio back office",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
			return common.ProblemJSON(c, status, "Internal Server Error", err)
		},
	})

	app.Use(recover.New())
	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemJSON(c, fiber.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded")
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return common.SuccessResponseJSON(c, fiber.StatusOK, "ok", fiber.Map{
			"env":    cfg.Env,
			"window": string(deps.Sessions.Current().Status),
		})
	})

	teller.Routes(app, deps.Teller, deps.Sessions, cfg)

	return app
}
