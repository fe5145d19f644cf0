// services/bot.go
package services

import (
	"context"
	"errors"
	"fmt"

	"vip-passport/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BotSender is the slice of *tgbotapi.BotAPI the webhook needs.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotService answers webhook updates. It never changes engine state.
type BotService struct {
	Sender     BotSender
	Users      *UserService
	MiniAppURL string
	Log        logrus.FieldLogger
}

func NewBotService(sender BotSender, users *UserService, miniAppURL string, log logrus.FieldLogger) *BotService {
	return &BotService{
		Sender:     sender,
		Users:      users,
		MiniAppURL: miniAppURL,
		Log:        log.WithField("component", "bot"),
	}
}

func (b *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	reply, ok := b.Reply(ctx, update)
	if !ok {
		return nil
	}
	if _, err := b.Sender.Send(reply); err != nil {
		return fmt.Errorf("send telegram reply: %w", err)
	}
	return nil
}

// Reply builds the response for a command message. ok is false for anything we ignore.
func (b *BotService) Reply(ctx context.Context, update tgbotapi.Update) (tgbotapi.MessageConfig, bool) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return tgbotapi.MessageConfig{}, false
	}
	response := tgbotapi.NewMessage(msg.Chat.ID, "")

	switch msg.Command() {
	case "start":
		response.Text = "Welcome to VIP Passport! Tap the button below to open the Mini App."
		if b.MiniAppURL != "" {
			response.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonURL("Open VIP Passport", b.MiniAppURL),
				),
			)
		}
	case "balance":
		response.Text = b.balanceText(ctx, msg.From)
	case "help":
		response.Text = "/start - open the Mini App\n/balance - show your points"
	default:
		response.Text = "Use /help to see available commands."
	}
	return response, true
}

func (b *BotService) balanceText(ctx context.Context, from *tgbotapi.User) string {
	if from == nil || b.Users == nil {
		return "Open the Mini App to register first."
	}
	var user models.User
	err := b.Users.DB.WithContext(ctx).First(&user, "telegram_id = ?", from.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "Open the Mini App to register first."
	}
	if err != nil {
		b.Log.WithError(err).WithField("telegram_id", from.ID).Error("balance lookup failed")
		return "Something went wrong, please try again later."
	}
	var stamps int64
	if err := b.Users.DB.WithContext(ctx).Model(&models.Stamp{}).Where("user_id = ?", user.ID).Count(&stamps).Error; err != nil {
		b.Log.WithError(err).WithField("user_id", user.ID).Error("stamp count failed")
	}
	return fmt.Sprintf("You have %d points and %d stamps.", user.TotalPoints, stamps)
}
