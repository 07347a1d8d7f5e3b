package notify

import (
	"context"
)

// Notifier delivers rendered messages to the broadcast channel, to
// individual users, and to the admin.
type Notifier interface {
	// SendChannel posts to the broadcast channel
	SendChannel(ctx context.Context, text string) error

	// SendUser messages one user directly
	SendUser(ctx context.Context, userID int64, text string) error

	// SendAdmin messages the admin, a no-op when none is configured
	SendAdmin(ctx context.Context, text string) error
}
