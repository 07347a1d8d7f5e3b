package pricehistory

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"amznerrors/dealbot/helpers"
	"amznerrors/dealbot/logger"
)

// History is the tracked price context for one item.
type History struct {
	Lowest  string
	Average string
	URL     string
}

// FetchFunc retrieves a page body as UTF-8
type FetchFunc func(url string) (io.Reader, error)

// Service looks up third-party price history for items. Lookups are
// best effort; the pipeline never depends on them, and a nil *Service
// is simply a disabled one.
type Service struct {
	baseURL string
	fetch   FetchFunc
	log     *logger.Logger
}

// New creates a price history service rooted at baseURL. A nil fetch
// falls back to the plain HTTP fetcher.
func New(baseURL string, fetch FetchFunc) *Service {
	if fetch == nil {
		fetch = func(url string) (io.Reader, error) {
			body, err := helpers.FetchSimply(url)
			if err != nil {
				return nil, err
			}
			return bytes.NewReader(body), nil
		}
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   fetch,
		log:     logger.ForScraper("pricehistory"),
	}
}

// Lookup fetches the tracker page for an item. Any failure, and any
// page without stats, yields nil.
func (s *Service) Lookup(itemID string) *History {
	if s == nil {
		return nil
	}
	url := s.baseURL + "/product/" + itemID

	body, err := s.fetch(url)
	if err != nil {
		s.log.Warn().Err(err).Str("item_id", itemID).Msg("Price history fetch failed")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		s.log.Warn().Err(err).Str("item_id", itemID).Msg("Price history page unreadable")
		return nil
	}

	h := &History{
		Lowest:  strings.TrimSpace(doc.Find(".stat.lowest span.value").First().Text()),
		Average: strings.TrimSpace(doc.Find(".stat.average span.value").First().Text()),
		URL:     url,
	}
	if h.Lowest == "" && h.Average == "" {
		return nil
	}
	return h
}
