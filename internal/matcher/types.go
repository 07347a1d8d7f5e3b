package matcher

import (
	"context"

	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/services/seen"
)

// ObligationStatus tracks one delivery through its lifecycle.
type ObligationStatus string

const (
	// StatusPending marks an obligation reserved but not yet sent
	StatusPending ObligationStatus = "pending"
	// StatusDelivered marks an obligation sent and committed
	StatusDelivered ObligationStatus = "delivered"
	// StatusFailed marks an obligation whose send failed; its
	// reservation was released for a later cycle
	StatusFailed ObligationStatus = "failed"
)

// Obligation is one message the pipeline owes a recipient. UserID 0
// addresses the broadcast channel.
type Obligation struct {
	ID     string
	UserID int64
	Deal   deal.Deal
	Status ObligationStatus
}

// Scope returns the seen-store scope this obligation settles against.
func (o *Obligation) Scope() string {
	if o.UserID == 0 {
		return seen.ChannelScope
	}
	return seen.UserScope(o.UserID)
}

// ProductFetcher looks up the current listing state of one product.
// A nil deal with nil error means the product is not marked down.
type ProductFetcher interface {
	Product(ctx context.Context, target string) (*deal.Deal, error)
}
