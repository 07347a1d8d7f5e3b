package scraper

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amznerrors/dealbot/internal/catalog"
	"amznerrors/dealbot/pkg/errors"
)

const listingFixture = `<!DOCTYPE html>
<html><body><div class="s-main-slot">
<div data-component-type="s-search-result" data-asin="B0WIDGET01">
  <h2><a href="/Widget-Deluxe/dp/B0WIDGET01/ref=sr_1_1?keywords=widget"><span>Widget</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$5.00</span><span class="a-price-whole">5<span class="a-price-decimal">.</span></span><span class="a-price-fraction">00</span></span>
  <span class="a-price a-text-price"><span class="a-offscreen">$100.00</span></span>
</div>
<div data-component-type="s-search-result" data-asin="B0GADGET01">
  <h2><a href="/Gadget/dp/B0GADGET01/ref=sr_1_2"><span>Gadget</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$50.00</span><span class="a-price-whole">50<span class="a-price-decimal">.</span></span><span class="a-price-fraction">00</span></span>
  <span class="a-price a-text-price"><span class="a-offscreen">$55.00</span></span>
</div>
<div data-component-type="s-search-result" data-asin="B0NOPRICE1">
  <h2><a href="/Mystery/dp/B0NOPRICE1/ref=sr_1_3"><span>Mystery Item</span></a></h2>
  <span class="a-price"><span class="a-price-whole">9<span class="a-price-decimal">.</span></span><span class="a-price-fraction">99</span></span>
</div>
</div></body></html>`

const emptyFixture = `<!DOCTYPE html><html><body><div class="s-main-slot"></div></body></html>`

func testCatalog() *catalog.Catalog {
	return catalog.New("https://www.amazon.ca", "amznerrorsca-20")
}

// fixtureFetch serves canned pages by exact URL and counts calls.
func fixtureFetch(pages map[string]string, calls *int) FetchFunc {
	return func(url string) (io.Reader, error) {
		if calls != nil {
			*calls++
		}
		html, ok := pages[url]
		if !ok {
			return nil, fmt.Errorf("unexpected url %s", url)
		}
		return strings.NewReader(html), nil
	}
}

func TestExtractCandidates(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingFixture))
	require.NoError(t, err)

	s := New(Config{Catalog: testCatalog()})
	candidates := s.ExtractCandidates(doc)
	require.Len(t, candidates, 3)

	assert.Equal(t, "Widget", candidates[0].Title)
	assert.Equal(t, "5.", candidates[0].PriceWhole)
	assert.Equal(t, "00", candidates[0].PriceFraction)
	assert.Equal(t, "$100.00", candidates[0].OriginalPrice)
	assert.Equal(t, "/Widget-Deluxe/dp/B0WIDGET01/ref=sr_1_1?keywords=widget", candidates[0].Href)

	assert.Equal(t, "Gadget", candidates[1].Title)

	// Tile without a struck-through list price still surfaces raw
	assert.Equal(t, "Mystery Item", candidates[2].Title)
	assert.Empty(t, candidates[2].OriginalPrice)
}

func TestScrapeListing(t *testing.T) {
	cat := testCatalog()
	loc := cat.Locators("electronics")[0]

	s := New(Config{
		Catalog: cat,
		Fetch:   fixtureFetch(map[string]string{loc.URL: listingFixture}, nil),
	})

	deals, err := s.ScrapeListing(context.Background(), loc, 90)
	require.NoError(t, err)
	require.Len(t, deals, 1)

	got := deals[0]
	assert.Equal(t, "B0WIDGET01", got.ItemID)
	assert.Equal(t, "Widget", got.Title)
	assert.Equal(t, 95, got.DiscountPercent)
	assert.Equal(t, "https://www.amazon.ca/dp/B0WIDGET01?tag=amznerrorsca-20", got.Link)
	assert.Equal(t, "electronics", got.Category)
	assert.Equal(t, "5", got.SalePrice.String())
	assert.Equal(t, "100", got.OriginalPrice.String())
}

func TestScrapeListingThresholdIsInclusive(t *testing.T) {
	cat := testCatalog()
	loc := cat.Locators("electronics")[0]
	pages := map[string]string{loc.URL: listingFixture}

	s := New(Config{Catalog: cat, Fetch: fixtureFetch(pages, nil)})

	deals, err := s.ScrapeListing(context.Background(), loc, 95)
	require.NoError(t, err)
	assert.Len(t, deals, 1)

	deals, err = s.ScrapeListing(context.Background(), loc, 96)
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestScrapeListingBlockedByGate(t *testing.T) {
	cat := testCatalog()
	loc := cat.Locators("electronics")[0]

	mockCache := NewMockCacheService()
	mockCache.Set("fetch_block:electronics", []byte("blocked"), time.Minute)

	calls := 0
	s := New(Config{
		Catalog:   cat,
		Fetch:     fixtureFetch(map[string]string{loc.URL: listingFixture}, &calls),
		CacheSvc:  mockCache,
		BlockTime: time.Minute,
	})

	_, err := s.ScrapeListing(context.Background(), loc, 90)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))
	assert.Zero(t, calls, "gate must prevent the fetch")
}

func TestScrapeListingArmsGateWhenRateLimited(t *testing.T) {
	cat := testCatalog()
	loc := cat.Locators("electronics")[0]

	mockCache := NewMockCacheService()
	s := New(Config{
		Catalog: cat,
		Fetch: func(url string) (io.Reader, error) {
			return nil, fmt.Errorf("rate limited; retry after %s", time.Minute)
		},
		CacheSvc:  mockCache,
		BlockTime: time.Minute,
	})

	_, err := s.ScrapeListing(context.Background(), loc, 90)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))

	_, err = mockCache.Get("fetch_block:electronics")
	assert.NoError(t, err, "rate limited fetch must arm the gate")
}

func TestScrapeListingFetchError(t *testing.T) {
	cat := testCatalog()
	loc := cat.Locators("electronics")[0]

	s := New(Config{
		Catalog: cat,
		Fetch: func(url string) (io.Reader, error) {
			return nil, fmt.Errorf("connection refused")
		},
	})

	_, err := s.ScrapeListing(context.Background(), loc, 90)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFetch))
}

func TestScrapeListingCancelledContext(t *testing.T) {
	cat := testCatalog()
	loc := cat.Locators("electronics")[0]

	calls := 0
	s := New(Config{
		Catalog: cat,
		Fetch:   fixtureFetch(map[string]string{loc.URL: listingFixture}, &calls),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ScrapeListing(ctx, loc, 90)
	require.Error(t, err)
	assert.Zero(t, calls)
}
