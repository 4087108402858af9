// Package middleware holds the web API middleware.
package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/andinafx/cambio/pkg/config"
	"github.com/andinafx/cambio/webapi/common"
)

// JwtProtected gates a route group on a valid operator bearer token.
func JwtProtected(cfg config.Auth) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JwtSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemJSON(c, fiber.StatusUnauthorized, "Unauthorized", err)
		},
	})
}
