// handlers/profile_routes.go
package handlers

import (
	"vip-passport/middleware"
	"vip-passport/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProfileRoutes(api fiber.Router, requireUser fiber.Handler, userService *services.UserService) {
	api.Get("/profile/me", requireUser, func(c *fiber.Ctx) error {
		return c.JSON(middleware.CurrentUser(c))
	})

	api.Post("/profile/complete", requireUser, func(c *fiber.Ctx) error {
		var req services.ProfileInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		user, err := userService.CompleteProfile(c.UserContext(), middleware.CurrentUser(c).ID, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(user)
	})

	api.Get("/dashboard", requireUser, func(c *fiber.Ctx) error {
		dashboard, err := userService.Dashboard(c.UserContext(), middleware.CurrentUser(c).ID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(dashboard)
	})

	api.Get("/notifications", requireUser, func(c *fiber.Ctx) error {
		entries, err := userService.Notifications(c.UserContext(), middleware.CurrentUser(c).ID, queryInt(c, "limit", 20))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	})
}
