// handlers/admin_routes.go
package handlers

import (
	"strings"

	"vip-passport/models"
	"vip-passport/services"

	"github.com/gofiber/fiber/v2"
)

// AdminServices groups what the admin surface needs.
type AdminServices struct {
	Users     *services.UserService
	Intake    *services.IntakeService
	Approvals *services.ApprovalService
	Missions  *services.MissionService
}

func SetupAdminRoutes(api fiber.Router, requireAdmin fiber.Handler, svc AdminServices) {
	admin := api.Group("/admin", requireAdmin)

	admin.Get("/users", func(c *fiber.Ctx) error {
		users, err := svc.Users.SearchUsers(c.UserContext(), c.Query("q"), queryInt(c, "limit", 50))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(users)
	})

	// --- Submissions ---

	kinds := map[string]models.SubmissionKind{
		"purchases": models.KindPurchase,
		"displays":  models.KindDisplay,
		"referrals": models.KindReferral,
	}
	for plural, kind := range kinds {
		plural, kind := plural, kind
		admin.Get("/"+plural+"/:id", func(c *fiber.Ctx) error {
			id, ok := uuidParam(c, "id")
			if !ok {
				return badRequest(c, "invalid id")
			}
			sub, err := svc.Intake.GetSubmission(c.UserContext(), kind, id, nil)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(sub)
		})

		admin.Post("/"+plural+"/:id/approve", func(c *fiber.Ctx) error {
			id, ok := uuidParam(c, "id")
			if !ok {
				return badRequest(c, "invalid id")
			}
			decision, err := svc.Approvals.Approve(c.UserContext(), kind, id)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(decision)
		})

		admin.Post("/"+plural+"/:id/reject", func(c *fiber.Ctx) error {
			id, ok := uuidParam(c, "id")
			if !ok {
				return badRequest(c, "invalid id")
			}
			note, err := adminNote(c)
			if err != nil {
				return badRequest(c, "invalid request body")
			}
			decision, err := svc.Approvals.Reject(c.UserContext(), kind, id, note)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(decision)
		})
	}

	admin.Get("/purchases", func(c *fiber.Ctx) error {
		out, err := svc.Intake.ListPurchases(c.UserContext(), submissionFilter(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})
	admin.Get("/displays", func(c *fiber.Ctx) error {
		out, err := svc.Intake.ListDisplays(c.UserContext(), submissionFilter(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})
	admin.Get("/referrals", func(c *fiber.Ctx) error {
		out, err := svc.Intake.ListReferrals(c.UserContext(), submissionFilter(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	admin.Post("/referrals/:id/mark-first-purchase", func(c *fiber.Ctx) error {
		id, ok := uuidParam(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		decision, err := svc.Approvals.CompleteReferral(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(decision)
	})

	// --- Missions ---

	admin.Get("/missions", func(c *fiber.Ctx) error {
		missions, err := svc.Missions.ListMissions(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(missions)
	})

	admin.Post("/missions", func(c *fiber.Ctx) error {
		var req services.MissionInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		mission, err := svc.Missions.CreateMission(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(mission)
	})

	admin.Put("/missions/:id", func(c *fiber.Ctx) error {
		id, ok := uuidParam(c, "id")
		if !ok {
			return badRequest(c, "invalid mission id")
		}
		var req services.MissionPatch
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		mission, err := svc.Missions.UpdateMission(c.UserContext(), id, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(mission)
	})

	for action, active := range map[string]bool{"activate": true, "deactivate": false} {
		action, active := action, active
		admin.Patch("/missions/:id/"+action, func(c *fiber.Ctx) error {
			id, ok := uuidParam(c, "id")
			if !ok {
				return badRequest(c, "invalid mission id")
			}
			mission, err := svc.Missions.SetActive(c.UserContext(), id, active)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(mission)
		})
	}

	admin.Get("/missions/:id/logs", func(c *fiber.Ctx) error {
		id, ok := uuidParam(c, "id")
		if !ok {
			return badRequest(c, "invalid mission id")
		}
		logs, err := svc.Missions.ListLogs(c.UserContext(), id, models.MissionStatus(strings.ToUpper(c.Query("status"))))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(logs)
	})

	admin.Post("/missions/:id/approve/:log_id", func(c *fiber.Ctx) error {
		missionID, ok1 := uuidParam(c, "id")
		logID, ok2 := uuidParam(c, "log_id")
		if !ok1 || !ok2 {
			return badRequest(c, "invalid id")
		}
		decision, err := svc.Approvals.ApproveMissionLog(c.UserContext(), missionID, logID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(decision)
	})

	admin.Post("/missions/:id/reject/:log_id", func(c *fiber.Ctx) error {
		missionID, ok1 := uuidParam(c, "id")
		logID, ok2 := uuidParam(c, "log_id")
		if !ok1 || !ok2 {
			return badRequest(c, "invalid id")
		}
		note, err := adminNote(c)
		if err != nil {
			return badRequest(c, "invalid request body")
		}
		decision, err := svc.Approvals.RejectMissionLog(c.UserContext(), missionID, logID, note)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(decision)
	})
}

// adminNote reads the optional {"admin_note": "..."} body of a reject call.
func adminNote(c *fiber.Ctx) (*string, error) {
	if len(c.Body()) == 0 {
		return nil, nil
	}
	var req struct {
		AdminNote *string `json:"admin_note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return nil, err
	}
	return req.AdminNote, nil
}

func submissionFilter(c *fiber.Ctx) services.SubmissionFilter {
	return services.SubmissionFilter{
		Status: models.MissionStatus(strings.ToUpper(c.Query("status"))),
		UserID: c.Query("user_id"),
		Limit:  queryInt(c, "limit", 100),
		Offset: queryInt(c, "offset", 0),
	}
}
