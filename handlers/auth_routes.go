// handlers/auth_routes.go
package handlers

import (
	"vip-passport/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(api fiber.Router, authService *services.AuthService) {
	api.Post("/auth/telegram", func(c *fiber.Ctx) error {
		var req struct {
			InitData string `json:"init_data"`
		}
		if err := c.BodyParser(&req); err != nil || req.InitData == "" {
			return badRequest(c, "init_data is required")
		}

		token, user, err := authService.LoginWithTelegram(c.UserContext(), req.InitData)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"access_token": token,
			"token_type":   "bearer",
			"user":         user,
		})
	})
}
