package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"amznerrors/dealbot/internal/catalog"
	"amznerrors/dealbot/logger"
)

const maxSearchResults = 5

// dispatch routes one command to its handler. Handlers return reply
// text through the injected reply func so they stay testable without
// a live Telegram connection.
func (b *Bot) dispatch(ctx context.Context, cmd, args string, from *tgbotapi.User, reply func(string)) {
	if from == nil {
		return
	}

	switch cmd {
	case "start":
		reply("👋 Welcome! \nUse /search, /subscribe, /alert & enjoy deals.")
	case "help":
		reply(helpText())
	case "search":
		reply(b.handleSearch(ctx, args))
	case "subscribe":
		reply(b.handleSubscribe(from.ID, args))
	case "unsubscribe":
		reply(b.handleUnsubscribe(from.ID, args))
	case "mysettings":
		reply(b.handleSettings(from.ID))
	case "alert":
		reply(b.handleAlert(from.ID, args))
	case "unalert":
		reply(b.handleUnalert(from.ID, args))
	case "scrape":
		b.handleScrape(ctx, from, reply)
	default:
		reply("Unknown command. Use /help to see what I can do.")
	}
}

func helpText() string {
	return fmt.Sprintf(`🤖 Amazon.ca price error bot

/search <category> <minDiscount> - scan a category right now
/subscribe <category> <minDiscount> - DM me deals from a category
/unsubscribe <category> - stop those DMs
/mysettings - show your subscriptions and alerts
/alert <link> <minDrop> - watch one product for a price drop
/unalert <link> - stop watching a product

Categories: %s`, strings.Join(catalog.Keys(), ", "))
}

func (b *Bot) handleSearch(ctx context.Context, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "Usage: /search <category> <minDiscount>\nExample: /search electronics 80"
	}

	key := strings.ToLower(parts[0])
	if !catalog.Known(key) {
		return unknownCategoryText(key)
	}
	min, ok := parsePercent(parts[1])
	if !ok {
		return "❌ The discount must be a whole number between 1 and 100."
	}

	result, err := b.searcher.AggregateAll(ctx, key, min)
	if err != nil {
		logger.LogError("bot", err, "Search failed for %s", key)
		return "❌ Search failed, try again later."
	}
	if len(result.Deals) == 0 {
		return fmt.Sprintf("No %s deals at %d%%+ right now.", key, min)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 Top %s deals at %d%%+:\n", key, min)
	for i, d := range result.Deals {
		if i == maxSearchResults {
			break
		}
		fmt.Fprintf(&sb, "\n%d. %s\n   $%s (was $%s, -%d%%)\n   %s\n",
			i+1, d.Title, d.SalePrice.StringFixed(2), d.OriginalPrice.StringFixed(2), d.DiscountPercent, d.Link)
	}
	return sb.String()
}

func (b *Bot) handleSubscribe(userID int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "Usage: /subscribe <category> <minDiscount>\nExample: /subscribe electronics 80"
	}

	key := strings.ToLower(parts[0])
	if !catalog.Known(key) {
		return unknownCategoryText(key)
	}
	min, ok := parsePercent(parts[1])
	if !ok {
		return "❌ The discount must be a whole number between 1 and 100."
	}

	if err := b.store.UpsertSubscription(userID, key, min); err != nil {
		logger.LogError("bot", err, "Subscribe failed for user %d", userID)
		return "❌ Could not save your subscription, try again later."
	}
	return fmt.Sprintf("✅ Subscribed: %s deals at %d%%+ will be sent to you.", key, min)
}

func (b *Bot) handleUnsubscribe(userID int64, args string) string {
	key := strings.ToLower(strings.TrimSpace(args))
	if key == "" || len(strings.Fields(key)) != 1 {
		return "Usage: /unsubscribe <category>"
	}

	removed, err := b.store.RemoveSubscription(userID, key)
	if err != nil {
		logger.LogError("bot", err, "Unsubscribe failed for user %d", userID)
		return "❌ Could not update your subscriptions, try again later."
	}
	if !removed {
		return fmt.Sprintf("You were not subscribed to %s.", key)
	}
	return fmt.Sprintf("✅ Unsubscribed from %s.", key)
}

func (b *Bot) handleSettings(userID int64) string {
	subs, err := b.store.SubscriptionsForUser(userID)
	if err != nil {
		logger.LogError("bot", err, "Settings lookup failed for user %d", userID)
		return "❌ Could not load your settings, try again later."
	}
	alerts, err := b.store.AlertsForUser(userID)
	if err != nil {
		logger.LogError("bot", err, "Settings lookup failed for user %d", userID)
		return "❌ Could not load your settings, try again later."
	}

	if len(subs) == 0 && len(alerts) == 0 {
		return "You have no subscriptions or alerts yet. Try /subscribe or /alert."
	}

	var sb strings.Builder
	sb.WriteString("⚙️ Your settings:\n")
	if len(subs) > 0 {
		sb.WriteString("\nSubscriptions:\n")
		for _, s := range subs {
			fmt.Fprintf(&sb, "  • %s at %d%%+\n", s.Category, s.MinDiscount)
		}
	}
	if len(alerts) > 0 {
		sb.WriteString("\nAlerts:\n")
		for _, a := range alerts {
			fmt.Fprintf(&sb, "  • %s at %d%%+ drop\n", a.Target, a.MinDrop)
		}
	}
	return sb.String()
}

func (b *Bot) handleAlert(userID int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "Usage: /alert <link> <minDrop>\nExample: /alert https://www.amazon.ca/dp/B0EXAMPLE0 50"
	}

	itemID, err := catalog.ResolveTarget(parts[0])
	if err != nil {
		return "❌ That does not look like an Amazon product link or item ID."
	}
	min, ok := parsePercent(parts[1])
	if !ok {
		return "❌ The drop must be a whole number between 1 and 100."
	}

	if err := b.store.UpsertAlert(userID, itemID, min); err != nil {
		logger.LogError("bot", err, "Alert failed for user %d", userID)
		return "❌ Could not save your alert, try again later."
	}
	return fmt.Sprintf("✅ Watching %s: you will hear when it drops %d%%+.", itemID, min)
}

func (b *Bot) handleUnalert(userID int64, args string) string {
	target := strings.TrimSpace(args)
	if target == "" || len(strings.Fields(target)) != 1 {
		return "Usage: /unalert <link>"
	}

	itemID, err := catalog.ResolveTarget(target)
	if err != nil {
		return "❌ That does not look like an Amazon product link or item ID."
	}

	removed, err := b.store.RemoveAlert(userID, itemID)
	if err != nil {
		logger.LogError("bot", err, "Unalert failed for user %d", userID)
		return "❌ Could not update your alerts, try again later."
	}
	if !removed {
		return fmt.Sprintf("You were not watching %s.", itemID)
	}
	return fmt.Sprintf("✅ No longer watching %s.", itemID)
}

// handleScrape runs a cycle inline so the completion message can carry
// the delivery count. The worker serializes cycles, so a tick landing
// mid-scrape just waits.
func (b *Bot) handleScrape(ctx context.Context, from *tgbotapi.User, reply func(string)) {
	if !b.isAdmin(from.UserName) {
		reply("❌ You are not authorized to run this.")
		return
	}

	reply("🔍 Running manual scrape…")

	stats, err := b.runner.RunCycle(ctx, "")
	if err != nil {
		logger.LogError("bot", err, "Manual scrape failed")
		reply("❌ Manual scrape failed, check the logs.")
		return
	}
	reply(fmt.Sprintf("✅ Manual scrape complete: sent %d new deals.", stats.Delivered))
}

func (b *Bot) isAdmin(username string) bool {
	return b.adminUser != "" && strings.EqualFold(username, b.adminUser)
}

func unknownCategoryText(key string) string {
	return fmt.Sprintf("❌ Unknown category: %s\nKnown: %s", key, strings.Join(catalog.Keys(), ", "))
}

func parsePercent(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(raw, "%"))
	if err != nil || n < 1 || n > 100 {
		return 0, false
	}
	return n, true
}
