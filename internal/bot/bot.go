package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"amznerrors/dealbot/internal/scraper"
	"amznerrors/dealbot/logger"
	"amznerrors/dealbot/services/store"
	"amznerrors/dealbot/services/worker"
)

// Searcher runs an on-demand scan of one category.
type Searcher interface {
	AggregateAll(ctx context.Context, key string, minDiscount int) (*scraper.Result, error)
}

// CycleRunner runs a full pipeline cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context, key string) (worker.CycleStats, error)
}

// Config wires a bot's collaborators.
type Config struct {
	API       *tgbotapi.BotAPI
	Store     store.Store
	Searcher  Searcher
	Runner    CycleRunner
	AdminUser string
}

// Bot owns the Telegram command loop. All state lives in the store;
// the bot itself only parses commands and formats replies.
type Bot struct {
	api       *tgbotapi.BotAPI
	store     store.Store
	searcher  Searcher
	runner    CycleRunner
	adminUser string
	log       *logger.Logger
}

// New creates a new bot
func New(cfg Config) *Bot {
	return &Bot{
		api:       cfg.API,
		store:     cfg.Store,
		searcher:  cfg.Searcher,
		runner:    cfg.Runner,
		adminUser: strings.TrimPrefix(cfg.AdminUser, "@"),
		log:       logger.ForBot(),
	}
}

// Run long-polls for updates until ctx is cancelled. Non-command
// messages are ignored.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Str("username", b.api.Self.UserName).Msg("Command loop started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("Command loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() {
				continue
			}

			b.log.Debug().
				Str("command", msg.Command()).
				Int64("chat_id", msg.Chat.ID).
				Msg("Handling command")

			b.dispatch(ctx, msg.Command(), strings.TrimSpace(msg.CommandArguments()), msg.From, func(text string) {
				b.reply(msg.Chat.ID, text)
			})
		}
	}
}

// reply sends Markdown and falls back to plain text when Telegram
// rejects the entities, so a deal title with stray markup still
// reaches the user.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		msg.ParseMode = ""
		if _, err := b.api.Send(msg); err != nil {
			logger.LogError("bot", err, "Reply failed for chat %d", chatID)
		}
	}
}
