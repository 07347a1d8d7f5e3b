package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/internal/matcher"
	"amznerrors/dealbot/internal/notify"
	"amznerrors/dealbot/internal/pricehistory"
	"amznerrors/dealbot/internal/scraper"
	"amznerrors/dealbot/logger"
	"amznerrors/dealbot/services/publisher"
	"amznerrors/dealbot/services/seen"
	"amznerrors/dealbot/services/store"
)

// Aggregator supplies one cycle's scraped deals.
type Aggregator interface {
	AggregateAll(ctx context.Context, key string, minDiscount int) (*scraper.Result, error)
}

// Matcher turns scraped deals into delivery obligations.
type Matcher interface {
	Match(ctx context.Context, deals []deal.Deal) ([]matcher.Obligation, error)
}

// CycleStats summarizes one scrape cycle.
type CycleStats struct {
	CycleID        string
	Deals          int
	Delivered      int
	FailedSends    int
	FailedLocators int
	Elapsed        time.Duration
}

// Config wires a worker's collaborators.
type Config struct {
	Aggregator  Aggregator
	Matcher     Matcher
	Seen        seen.Store
	Store       store.Store
	Notifier    notify.Notifier
	Publisher   publisher.Publisher
	History     *pricehistory.Service
	MinDiscount int
	Interval    time.Duration
	FirstDelay  time.Duration
}

// Worker drives the deal pipeline on a schedule: aggregate listings,
// match them against recipients, deliver, and feed delivered channel
// deals downstream.
type Worker struct {
	ctx         context.Context
	aggregator  Aggregator
	matcher     Matcher
	seen        seen.Store
	store       store.Store
	notifier    notify.Notifier
	pub         publisher.Publisher
	history     *pricehistory.Service
	minDiscount int
	interval    time.Duration
	firstDelay  time.Duration

	trigger chan struct{}
	runMu   sync.Mutex
	log     *logger.Logger
}

// New creates a new worker
func New(ctx context.Context, cfg Config) *Worker {
	return &Worker{
		ctx:         ctx,
		aggregator:  cfg.Aggregator,
		matcher:     cfg.Matcher,
		seen:        cfg.Seen,
		store:       cfg.Store,
		notifier:    cfg.Notifier,
		pub:         cfg.Publisher,
		history:     cfg.History,
		minDiscount: cfg.MinDiscount,
		interval:    cfg.Interval,
		firstDelay:  cfg.FirstDelay,
		trigger:     make(chan struct{}, 1),
		log:         logger.ForWorker(),
	}
}

// Start runs cycles until the worker's context is cancelled: the first
// after a short delay, then on every interval tick or manual trigger.
func (w *Worker) Start() {
	w.log.Info().
		Dur("interval", w.interval).
		Dur("first_delay", w.firstDelay).
		Msg("Worker started")

	timer := time.NewTimer(w.firstDelay)
	defer timer.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-timer.C:
		case <-w.trigger:
		}

		if _, err := w.RunCycle(w.ctx, ""); err != nil {
			logger.LogError("worker", err, "Cycle failed")
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.interval)
	}
}

// TriggerNow requests an immediate cycle without waiting for the next
// tick. Requests arriving while one is already queued are coalesced.
func (w *Worker) TriggerNow() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// RunCycle executes one full pipeline pass over key, an empty key
// meaning the whole catalog. Only one cycle runs at a time; a manual
// run holds the next scheduled one until it finishes.
func (w *Worker) RunCycle(ctx context.Context, key string) (CycleStats, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	stats := CycleStats{CycleID: uuid.NewString()}
	start := time.Now()
	log := w.log.WithField("cycle_id", stats.CycleID)

	result, err := w.aggregator.AggregateAll(ctx, key, w.effectiveThreshold())
	if err != nil {
		return stats, err
	}
	stats.Deals = len(result.Deals)
	stats.FailedLocators = len(result.Failures)

	obligations, err := w.matcher.Match(ctx, result.Deals)
	if err != nil {
		return stats, err
	}

	var channelDeals []deal.Deal
	for i := range obligations {
		ob := &obligations[i]
		if w.deliver(ctx, ob) {
			stats.Delivered++
			if ob.UserID == 0 {
				channelDeals = append(channelDeals, ob.Deal)
			}
		} else {
			stats.FailedSends++
		}
	}

	w.publishFeed(channelDeals)

	if len(result.Failures) > 0 {
		w.notifyAdminFailures(ctx, result.Failures)
	}

	stats.Elapsed = time.Since(start)
	log.Info().
		Int("deals", stats.Deals).
		Int("delivered", stats.Delivered).
		Int("failed_sends", stats.FailedSends).
		Int("failed_locators", stats.FailedLocators).
		Dur("elapsed", stats.Elapsed).
		Msg("Cycle complete")

	return stats, nil
}

// effectiveThreshold widens the scrape filter to the lowest
// subscription threshold, so deals below the channel minimum but
// inside a subscriber's range are still collected.
func (w *Worker) effectiveThreshold() int {
	min := w.minDiscount
	if w.store == nil {
		return min
	}

	subs, err := w.store.AllSubscriptions()
	if err != nil {
		logger.LogError("worker", err, "Subscriptions unavailable, using global threshold")
		return min
	}
	for _, sub := range subs {
		if sub.MinDiscount < min {
			min = sub.MinDiscount
		}
	}
	return min
}

// deliver renders and sends one obligation, then settles its seen
// reservation: commit on success, release on failure so a later cycle
// retries the deal.
func (w *Worker) deliver(ctx context.Context, ob *matcher.Obligation) bool {
	// History is channel-only; per-user sends would repeat the lookup.
	var hist *pricehistory.History
	if ob.UserID == 0 {
		hist = w.history.Lookup(ob.Deal.ItemID)
	}
	text := notify.Render(ob.Deal, hist)

	var err error
	if ob.UserID == 0 {
		err = w.notifier.SendChannel(ctx, text)
	} else {
		err = w.notifier.SendUser(ctx, ob.UserID, text)
	}

	scope := ob.Scope()
	if err != nil {
		logger.LogError("worker", err, "Delivery failed for %s", scope)
		ob.Status = matcher.StatusFailed
		if rerr := w.seen.Release(ctx, scope, ob.Deal.Link); rerr != nil {
			logger.LogError("worker", rerr, "Reservation release failed for %s", scope)
		}
		return false
	}

	ob.Status = matcher.StatusDelivered
	if cerr := w.seen.Commit(ctx, scope, ob.Deal.Link); cerr != nil {
		logger.LogError("worker", cerr, "Reservation commit failed for %s", scope)
	}
	return true
}

// publishFeed pushes the cycle's delivered channel deals to the
// downstream stream, then trims it.
func (w *Worker) publishFeed(deals []deal.Deal) {
	if w.pub == nil || len(deals) == 0 {
		return
	}

	payload, err := json.Marshal(deals)
	if err != nil {
		logger.LogError("worker", err, "Feed marshal failed")
		return
	}
	if err := w.pub.Publish(payload); err != nil {
		logger.LogError("worker", err, "Feed publish failed")
		return
	}
	if err := w.pub.TrimStreams(); err != nil {
		logger.LogError("worker", err, "Stream trim failed")
	}
}

// notifyAdminFailures reports the cycle's broken locators to the
// admin, best effort.
func (w *Worker) notifyAdminFailures(ctx context.Context, failures []scraper.FetchFailure) {
	cats := make([]string, 0, len(failures))
	for _, f := range failures {
		cats = append(cats, f.Locator.Category)
	}

	text := fmt.Sprintf("⚠️ Scrape failures this cycle: %s", strings.Join(cats, ", "))
	if err := w.notifier.SendAdmin(ctx, text); err != nil {
		logger.LogError("worker", err, "Admin notification failed")
	}
}
