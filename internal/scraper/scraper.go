package scraper

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"amznerrors/dealbot/helpers"
	"amznerrors/dealbot/internal/catalog"
	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/logger"
	"amznerrors/dealbot/pkg/errors"
	"amznerrors/dealbot/services/cache"
)

// Config configures a Scraper
type Config struct {
	Catalog          *catalog.Catalog
	Selectors        Selectors
	ProductSelectors ProductSelectors
	Fetch            FetchFunc
	CacheSvc         cache.CacheService
	BlockTime        time.Duration
}

// Scraper turns listing and product pages into validated deals.
type Scraper struct {
	catalog    *catalog.Catalog
	selectors  Selectors
	productSel ProductSelectors
	fetch      FetchFunc
	cacheSvc   cache.CacheService
	blockTime  time.Duration
	log        *logger.Logger
}

// New creates a new scraper. A nil Fetch falls back to the
// header-rotating HTTP fetcher; empty selector sets fall back to the
// current site layout.
func New(config Config) *Scraper {
	if config.Fetch == nil {
		config.Fetch = helpers.FetchWithRandomHeaders
	}
	if config.Selectors == (Selectors{}) {
		config.Selectors = DefaultSelectors()
	}
	if config.ProductSelectors == (ProductSelectors{}) {
		config.ProductSelectors = DefaultProductSelectors()
	}

	return &Scraper{
		catalog:    config.Catalog,
		selectors:  config.Selectors,
		productSel: config.ProductSelectors,
		fetch:      config.Fetch,
		cacheSvc:   config.CacheSvc,
		blockTime:  config.BlockTime,
		log:        logger.ForScraper("amazon"),
	}
}

// fetchWithGate fetches a URL unless the scope's block gate is armed.
// A rate limited response arms the gate so later cycles skip the scope
// until it expires.
func (s *Scraper) fetchWithGate(scope, url string) (io.Reader, error) {
	blockKey := "fetch_block:" + scope

	if s.cacheSvc != nil {
		if _, err := s.cacheSvc.Get(blockKey); err == nil {
			return nil, errors.NewRateLimit("scrape."+scope, s.blockTime)
		}
	}

	body, err := s.fetch(url)
	if err != nil {
		if strings.HasPrefix(err.Error(), "rate limited") {
			if s.cacheSvc != nil {
				s.cacheSvc.Set(blockKey, []byte("blocked"), s.blockTime)
			}
			return nil, errors.NewRateLimit("scrape."+scope, s.blockTime)
		}
		return nil, errors.NewFetch("scrape."+scope, url, err)
	}

	return body, nil
}

// ExtractCandidates lifts every result tile off a listing page in
// document order.
func (s *Scraper) ExtractCandidates(doc *goquery.Document) []Candidate {
	var candidates []Candidate

	doc.Find(s.selectors.Result).Each(func(_ int, sel *goquery.Selection) {
		c := Candidate{
			Title:         strings.TrimSpace(sel.Find(s.selectors.Title).First().Text()),
			PriceWhole:    strings.TrimSpace(sel.Find(s.selectors.PriceWhole).First().Text()),
			PriceFraction: strings.TrimSpace(sel.Find(s.selectors.PriceFraction).First().Text()),
			OriginalPrice: strings.TrimSpace(sel.Find(s.selectors.OriginalPrice).First().Text()),
		}
		if href, ok := sel.Find(s.selectors.Link).First().Attr("href"); ok {
			c.Href = strings.TrimSpace(href)
		}
		candidates = append(candidates, c)
	})

	return candidates
}

// ScrapeListing fetches one locator's page and returns its validated
// deals at or above minDiscount, in page order.
func (s *Scraper) ScrapeListing(ctx context.Context, loc catalog.Locator, minDiscount int) ([]deal.Deal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := s.fetchWithGate(loc.Category, loc.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errors.NewParse("scrape."+loc.Category, "html parse", err)
	}

	candidates := s.ExtractCandidates(doc)
	deals := make([]deal.Deal, 0, len(candidates))
	for _, c := range candidates {
		d, ok := s.buildDeal(c, loc.Category, minDiscount)
		if !ok {
			continue
		}
		deals = append(deals, *d)
	}

	s.log.Debug().
		Str("category", loc.Category).
		Int("candidates", len(candidates)).
		Int("deals", len(deals)).
		Msg("Scraped listing")

	return deals, nil
}

// buildDeal validates one candidate against the discount threshold.
// Incomplete tiles, unparseable prices and broken links are dropped,
// never fatal.
func (s *Scraper) buildDeal(c Candidate, category string, minDiscount int) (*deal.Deal, bool) {
	if c.Title == "" || c.PriceWhole == "" || c.OriginalPrice == "" || c.Href == "" {
		return nil, false
	}

	sale, err := deal.ParseListingPrice(c.PriceWhole, c.PriceFraction)
	if err != nil {
		s.log.Debug().Err(err).Str("title", c.Title).Msg("Dropped candidate with bad sale price")
		return nil, false
	}

	orig, err := deal.ParsePrice(c.OriginalPrice)
	if err != nil {
		s.log.Debug().Err(err).Str("title", c.Title).Msg("Dropped candidate with bad original price")
		return nil, false
	}

	pct, ok := deal.MeetsThreshold(sale, orig, minDiscount)
	if !ok {
		if pct < 0 || pct > 100 {
			s.log.Debug().Int("discount", pct).Str("title", c.Title).Msg("Dropped candidate with impossible discount")
		}
		return nil, false
	}

	itemID, err := catalog.ExtractItemID(c.Href)
	if err != nil {
		s.log.Debug().Err(err).Str("title", c.Title).Msg("Dropped candidate with unusable link")
		return nil, false
	}

	d, err := deal.New(itemID, c.Title, sale, orig, s.catalog.CanonicalLink(itemID), category)
	if err != nil {
		s.log.Debug().Err(err).Str("title", c.Title).Msg("Dropped invalid candidate")
		return nil, false
	}

	return d, true
}
