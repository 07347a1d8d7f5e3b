package scraper

import "io"

// Candidate is one result tile lifted off a listing page before any
// validation. Fields hold raw node text; an empty string marks a node
// the page did not render.
type Candidate struct {
	Title         string
	PriceWhole    string
	PriceFraction string
	OriginalPrice string
	Href          string
}

// Selectors contains CSS selectors for the parts of a listing page
type Selectors struct {
	Result        string
	Title         string
	PriceWhole    string
	PriceFraction string
	OriginalPrice string
	Link          string
}

// DefaultSelectors matches the desktop search result layout
func DefaultSelectors() Selectors {
	return Selectors{
		Result:        `div[data-component-type="s-search-result"]`,
		Title:         "h2 a span",
		PriceWhole:    "span.a-price-whole",
		PriceFraction: "span.a-price-fraction",
		OriginalPrice: "span.a-price.a-text-price span.a-offscreen",
		Link:          "h2 a",
	}
}

// ProductSelectors contains CSS selectors for a single product page
type ProductSelectors struct {
	Title         string
	PriceWhole    string
	PriceFraction string
	OriginalPrice string
}

// DefaultProductSelectors matches the desktop product page layout.
// The first price pair on the page is the buy box price.
func DefaultProductSelectors() ProductSelectors {
	return ProductSelectors{
		Title:         "span#productTitle",
		PriceWhole:    "span.a-price-whole",
		PriceFraction: "span.a-price-fraction",
		OriginalPrice: "span.a-price.a-text-price span.a-offscreen",
	}
}

// FetchFunc retrieves a page body as UTF-8
type FetchFunc func(url string) (io.Reader, error)
