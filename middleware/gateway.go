// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// GatewayHeader carries the shared secret of the fronting gateway.
const GatewayHeader = "X-Gateway-Token"

// GatewayAuthMiddleware rejects requests that did not come through the gateway.
// An empty expected token disables the check, which is how local setups run.
func GatewayAuthMiddleware(expectedToken string, log logrus.FieldLogger) fiber.Handler {
	log = log.WithField("component", "gateway_auth")
	if expectedToken == "" {
		log.Warn("GATEWAY_TOKEN is not set; gateway authentication disabled")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		raw := c.Get(GatewayHeader)
		if raw == "" {
			log.WithField("path", c.Path()).Warn("missing gateway token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// Accept both "Bearer <token>" and the raw value.
		token := strings.TrimPrefix(raw, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.WithField("path", c.Path()).Warn("invalid gateway token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
