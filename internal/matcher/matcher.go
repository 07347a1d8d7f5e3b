package matcher

import (
	"context"

	"github.com/google/uuid"

	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/logger"
	"amznerrors/dealbot/services/seen"
	"amznerrors/dealbot/services/store"
)

// Matcher turns a cycle's scraped deals into delivery obligations:
// one channel post per unseen deal at the global threshold, one direct
// message per matching subscription, and one per firing alert. Every
// obligation is reserved in the seen store before it is returned, so a
// crash between matching and delivery costs at most one reservation
// TTL, never a duplicate send.
type Matcher struct {
	store       store.Store
	seen        seen.Store
	products    ProductFetcher
	minDiscount int
	log         *logger.Logger
}

// New creates a matcher. minDiscount is the global channel threshold;
// subscriptions and alerts carry their own.
func New(st store.Store, sn seen.Store, products ProductFetcher, minDiscount int) *Matcher {
	return &Matcher{
		store:       st,
		seen:        sn,
		products:    products,
		minDiscount: minDiscount,
		log:         logger.ForMatcher(),
	}
}

// Match builds the cycle's obligations from the scraped deals. The
// order is deterministic: channel posts in deal order, then
// subscription matches in store order, then alert matches. Returns an
// error only when ctx is cancelled; storage problems degrade to
// logged warnings.
func (m *Matcher) Match(ctx context.Context, deals []deal.Deal) ([]Obligation, error) {
	var obligations []Obligation

	for _, d := range deals {
		if d.DiscountPercent < m.minDiscount {
			continue
		}
		if ob := m.claim(ctx, 0, d); ob != nil {
			obligations = append(obligations, *ob)
		}
	}

	subObs, err := m.matchSubscriptions(ctx, deals)
	if err != nil {
		return nil, err
	}
	obligations = append(obligations, subObs...)

	alertObs, err := m.matchAlerts(ctx)
	if err != nil {
		return nil, err
	}
	obligations = append(obligations, alertObs...)

	m.log.Info().
		Int("deals", len(deals)).
		Int("obligations", len(obligations)).
		Msg("Matching pass complete")

	return obligations, nil
}

func (m *Matcher) matchSubscriptions(ctx context.Context, deals []deal.Deal) ([]Obligation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subs, err := m.store.AllSubscriptions()
	if err != nil {
		logger.LogError("matcher", err, "Skipping subscription matching")
		return nil, nil
	}

	var obligations []Obligation
	for _, sub := range subs {
		for _, d := range deals {
			if d.Category != sub.Category || d.DiscountPercent < sub.MinDiscount {
				continue
			}
			if ob := m.claim(ctx, sub.UserID, d); ob != nil {
				obligations = append(obligations, *ob)
			}
		}
	}
	return obligations, nil
}

func (m *Matcher) matchAlerts(ctx context.Context) ([]Obligation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alerts, err := m.store.AllAlerts()
	if err != nil {
		logger.LogError("matcher", err, "Skipping alert matching")
		return nil, nil
	}
	if len(alerts) > 0 && m.products == nil {
		m.log.Warn().Int("alerts", len(alerts)).Msg("No product fetcher, skipping alert matching")
		return nil, nil
	}

	var obligations []Obligation
	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return obligations, err
		}

		d, err := m.products.Product(ctx, alert.Target)
		if err != nil {
			m.log.Warn().Err(err).
				Int64("user_id", alert.UserID).
				Str("target", alert.Target).
				Msg("Alert product lookup failed")
			continue
		}
		if d == nil || d.DiscountPercent < alert.MinDrop {
			continue
		}
		if ob := m.claim(ctx, alert.UserID, *d); ob != nil {
			obligations = append(obligations, *ob)
		}
	}
	return obligations, nil
}

// claim reserves the deal for the recipient and builds the pending
// obligation. A seen-store failure fails open: better a rare repeat
// than a silently dropped deal.
func (m *Matcher) claim(ctx context.Context, userID int64, d deal.Deal) *Obligation {
	scope := seen.ChannelScope
	if userID != 0 {
		scope = seen.UserScope(userID)
	}

	fresh, err := m.seen.Reserve(ctx, scope, d.Link)
	if err != nil {
		m.log.Warn().Err(err).
			Str("scope", scope).
			Str("link", d.Link).
			Msg("Seen store unavailable, treating deal as new")
		fresh = true
	}
	if !fresh {
		return nil
	}

	return &Obligation{
		ID:     uuid.NewString(),
		UserID: userID,
		Deal:   d,
		Status: StatusPending,
	}
}
