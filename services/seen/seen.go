package seen

import (
	"context"
	"strconv"
)

// ChannelScope marks links delivered to the broadcast channel.
const ChannelScope = "channel"

// UserScope returns the scope for a single recipient's deliveries.
func UserScope(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Store tracks which deal links have already gone out, per recipient
// scope. Reserve and Commit form a two-phase insert: Reserve claims an
// unseen link before any send, Commit pins it once delivery succeeded,
// and Release returns a failed send to circulation so a later cycle
// can offer it again.
type Store interface {
	// Reserve atomically claims link for scope. True means the link
	// was unknown and is now held; false means it is already reserved
	// or delivered.
	Reserve(ctx context.Context, scope, link string) (bool, error)

	// Commit marks a reserved link as delivered for the retention
	// period.
	Commit(ctx context.Context, scope, link string) error

	// Release drops a reservation after a failed delivery.
	Release(ctx context.Context, scope, link string) error

	// Close closes the store connection
	Close() error
}
