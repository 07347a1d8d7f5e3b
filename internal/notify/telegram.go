package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"amznerrors/dealbot/logger"
	"amznerrors/dealbot/pkg/errors"
)

// TelegramNotifier sends messages through one bot, paced by a shared
// rate limiter so a burst of deals does not trip the API flood
// control.
type TelegramNotifier struct {
	api         *tgbotapi.BotAPI
	channel     string
	adminChatID int64
	limiter     *rate.Limiter
	log         *logger.Logger
}

// NewTelegramNotifier creates a notifier posting to channel, an
// @-prefixed channel username. perSecond caps outbound messages
// across every destination.
func NewTelegramNotifier(api *tgbotapi.BotAPI, channel string, adminChatID int64, perSecond float64) *TelegramNotifier {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &TelegramNotifier{
		api:         api,
		channel:     channel,
		adminChatID: adminChatID,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		log:         logger.ForNotifier(),
	}
}

func (n *TelegramNotifier) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.NewNotify("notify.send", "rate limiter wait", err)
	}

	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		return errors.NewNotify("notify.send", "telegram send", err)
	}
	return nil
}

// SendChannel posts to the broadcast channel
func (n *TelegramNotifier) SendChannel(ctx context.Context, text string) error {
	return n.send(ctx, tgbotapi.NewMessageToChannel(n.channel, text))
}

// SendUser messages one user directly
func (n *TelegramNotifier) SendUser(ctx context.Context, userID int64, text string) error {
	return n.send(ctx, tgbotapi.NewMessage(userID, text))
}

// SendAdmin messages the admin when an admin chat is configured
func (n *TelegramNotifier) SendAdmin(ctx context.Context, text string) error {
	if n.adminChatID == 0 {
		n.log.Debug().Msg("No admin chat configured, dropping admin message")
		return nil
	}
	return n.send(ctx, tgbotapi.NewMessage(n.adminChatID, text))
}
