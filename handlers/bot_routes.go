// handlers/bot_routes.go
package handlers

import (
	"encoding/json"

	"vip-passport/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// SetupBotRoutes registers the Telegram webhook. Telegram retries on non-2xx, so send
// failures are logged and still acknowledged.
func SetupBotRoutes(api fiber.Router, bot *services.BotService, log logrus.FieldLogger) {
	api.Post("/bot/webhook", func(c *fiber.Ctx) error {
		var update tgbotapi.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			return badRequest(c, "invalid update")
		}
		if err := bot.HandleUpdate(c.UserContext(), update); err != nil {
			log.WithError(err).WithField("update_id", update.UpdateID).Error("webhook update failed")
		}
		return c.JSON(fiber.Map{"ok": true})
	})
}
