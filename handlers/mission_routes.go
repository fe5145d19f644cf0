// handlers/mission_routes.go
package handlers

import (
	"vip-passport/middleware"
	"vip-passport/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMissionRoutes(api fiber.Router, requireUser fiber.Handler, missions *services.MissionService, approvals *services.ApprovalService) {
	secured := api.Group("/missions", requireUser)

	secured.Get("/", func(c *fiber.Ctx) error {
		views, err := missions.ListForUser(c.UserContext(), middleware.CurrentUser(c).ID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(views)
	})

	secured.Post("/:id/start", func(c *fiber.Ctx) error {
		id, ok := uuidParam(c, "id")
		if !ok {
			return badRequest(c, "invalid mission id")
		}
		entry, err := approvals.StartMission(c.UserContext(), middleware.CurrentUser(c).ID, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})
}
