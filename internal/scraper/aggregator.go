package scraper

import (
	"context"

	"golang.org/x/sync/errgroup"

	"amznerrors/dealbot/internal/catalog"
	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/logger"
	"amznerrors/dealbot/pkg/errors"
)

// FetchFailure records one locator that could not be scraped this
// cycle.
type FetchFailure struct {
	Locator catalog.Locator
	Err     error
}

// Result carries one aggregation pass: the merged deals plus every
// locator that failed. Failures never suppress the deals the other
// locators produced.
type Result struct {
	Deals    []deal.Deal
	Failures []FetchFailure
}

// Aggregator fans listing scrapes out across locators and merges the
// results back in locator order.
type Aggregator struct {
	scraper     *Scraper
	catalog     *catalog.Catalog
	concurrency int
	log         *logger.Logger
}

// NewAggregator creates a new aggregator. concurrency bounds how many
// listing pages are in flight at once.
func NewAggregator(s *Scraper, cat *catalog.Catalog, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		scraper:     s,
		catalog:     cat,
		concurrency: concurrency,
		log:         logger.ForScraper("aggregate"),
	}
}

// AggregateAll scrapes every locator for key, an empty key meaning the
// whole catalog. Deals are merged in locator order and deduplicated by
// link, first occurrence winning, so reruns produce a stable list.
func (a *Aggregator) AggregateAll(ctx context.Context, key string, minDiscount int) (*Result, error) {
	locators := a.catalog.Locators(key)
	if locators == nil {
		return nil, errors.NewValidation("aggregate", "unknown category: "+key)
	}

	perLocator := make([][]deal.Deal, len(locators))
	failureAt := make([]*FetchFailure, len(locators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, loc := range locators {
		i, loc := i, loc
		g.Go(func() error {
			deals, err := a.scraper.ScrapeListing(gctx, loc, minDiscount)
			if err != nil {
				failureAt[i] = &FetchFailure{Locator: loc, Err: err}
				return nil
			}
			perLocator[i] = deals
			return nil
		})
	}

	// Workers record failures instead of returning them, so Wait
	// cannot fail.
	_ = g.Wait()

	result := &Result{}
	seen := make(map[string]struct{})
	for i := range locators {
		if f := failureAt[i]; f != nil {
			result.Failures = append(result.Failures, *f)
			logger.LogError("aggregate", f.Err, "Locator %s failed", f.Locator.Category)
			continue
		}
		for _, d := range perLocator[i] {
			if _, dup := seen[d.Link]; dup {
				continue
			}
			seen[d.Link] = struct{}{}
			result.Deals = append(result.Deals, d)
		}
	}

	a.log.Info().
		Int("locators", len(locators)).
		Int("deals", len(result.Deals)).
		Int("failures", len(result.Failures)).
		Msg("Aggregation pass complete")

	return result, nil
}
