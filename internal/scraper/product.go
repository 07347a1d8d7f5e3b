package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"amznerrors/dealbot/internal/catalog"
	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/pkg/errors"
)

// Product fetches one product page and reports its current markdown
// as a deal. target may be a bare item ID or any detail URL. A page
// without a struck-through list price is simply not marked down; that
// is the common case and returns nil, nil.
func (s *Scraper) Product(ctx context.Context, target string) (*deal.Deal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	itemID, err := catalog.ResolveTarget(target)
	if err != nil {
		return nil, err
	}

	url := s.catalog.CanonicalLink(itemID)
	body, err := s.fetchWithGate("product", url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errors.NewParse("product."+itemID, "html parse", err)
	}

	title := strings.TrimSpace(doc.Find(s.productSel.Title).First().Text())
	whole := strings.TrimSpace(doc.Find(s.productSel.PriceWhole).First().Text())
	frac := strings.TrimSpace(doc.Find(s.productSel.PriceFraction).First().Text())
	orig := strings.TrimSpace(doc.Find(s.productSel.OriginalPrice).First().Text())

	if title == "" || whole == "" {
		return nil, errors.NewParse("product."+itemID, "page missing title or price", nil)
	}
	if orig == "" {
		return nil, nil
	}

	sale, err := deal.ParseListingPrice(whole, frac)
	if err != nil {
		return nil, err
	}
	origPrice, err := deal.ParsePrice(orig)
	if err != nil {
		return nil, err
	}

	if _, ok := deal.MeetsThreshold(sale, origPrice, 0); !ok {
		s.log.Debug().Str("item_id", itemID).Msg("Product page shows impossible prices")
		return nil, nil
	}

	d, err := deal.New(itemID, title, sale, origPrice, url, "")
	if err != nil {
		return nil, err
	}
	return d, nil
}
