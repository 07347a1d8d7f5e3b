package notify

import (
	"fmt"
	"strings"

	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/internal/pricehistory"
)

// markdownEscaper neutralizes classic Markdown control characters so
// product titles cannot break the message markup.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"`", "\\`",
)

// EscapeMarkdown escapes text for classic Markdown parse mode.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Render formats one deal announcement. history may be nil, in which
// case the price context line is omitted.
func Render(d deal.Deal, history *pricehistory.History) string {
	histText := ""
	if history != nil && history.Lowest != "" {
		histText = "\n📈 Lowest: " + history.Lowest
		if history.Average != "" {
			histText += " | Avg: " + history.Average
		}
	}

	return fmt.Sprintf(
		"🔥 *PRICE ERROR ALERT!* 🔥\n\n🛍️ *%s*\n💸 *Now:* $%s (was $%s)\n📉 *Discount:* %d%%%s\n\n[Buy Now](%s)",
		EscapeMarkdown(d.Title),
		d.SalePrice.StringFixed(2),
		d.OriginalPrice.StringFixed(2),
		d.DiscountPercent,
		histText,
		d.Link,
	)
}
