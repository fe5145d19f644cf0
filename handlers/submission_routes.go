// handlers/submission_routes.go
package handlers

import (
	"vip-passport/middleware"
	"vip-passport/models"
	"vip-passport/services"
	"vip-passport/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupSubmissionRoutes registers evidence intake, owner reads and evidence uploads.
// store may be nil, in which case uploads answer 503.
func SetupSubmissionRoutes(api fiber.Router, requireUser fiber.Handler, intake *services.IntakeService, store utils.EvidenceStore) {
	api.Post("/purchase", requireUser, func(c *fiber.Ctx) error {
		var req services.PurchaseInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		res, err := intake.SubmitPurchase(c.UserContext(), middleware.CurrentUser(c).ID, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	api.Post("/display", requireUser, func(c *fiber.Ctx) error {
		var req services.DisplayInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		res, err := intake.SubmitDisplay(c.UserContext(), middleware.CurrentUser(c).ID, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	api.Post("/referral", requireUser, func(c *fiber.Ctx) error {
		var req services.ReferralInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		res, err := intake.SubmitReferral(c.UserContext(), middleware.CurrentUser(c).ID, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	for path, kind := range map[string]models.SubmissionKind{
		"/purchase/:id": models.KindPurchase,
		"/display/:id":  models.KindDisplay,
		"/referral/:id": models.KindReferral,
	} {
		path, kind := path, kind
		api.Get(path, requireUser, func(c *fiber.Ctx) error {
			id, ok := uuidParam(c, "id")
			if !ok {
				return badRequest(c, "invalid id")
			}
			sub, err := intake.GetSubmission(c.UserContext(), kind, id, middleware.CurrentUser(c))
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(sub)
		})
	}

	api.Post("/uploads/evidence", requireUser, func(c *fiber.Ctx) error {
		if store == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "uploads are not configured"})
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return badRequest(c, "file is required")
		}
		if fileHeader.Size > utils.MaxEvidenceSize {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file too large"})
		}
		key, err := utils.EvidenceKey(c.FormValue("kind"), middleware.CurrentUser(c).ID, fileHeader.Filename)
		if err != nil {
			return badRequest(c, err.Error())
		}
		url, err := store.Put(c.UserContext(), key, fileHeader)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url, "key": key})
	})
}
