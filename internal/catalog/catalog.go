package catalog

import (
	"regexp"
	"sort"
	"strings"

	"amznerrors/dealbot/helpers"
	"amznerrors/dealbot/pkg/errors"
)

// SortMarker requests ascending-price ordering on every listing page,
// keeping the steepest-looking discounts near the top.
const SortMarker = "sort=price-asc-rank"

// categoryPaths maps logical category keys to listing path templates.
var categoryPaths = map[string]string{
	"deals":       "/b?node=37219708011&ref_=nav_cs_cash_desk_disco",
	"bestsellers": "/Best-Sellers-generic/zgbs/",
	"electronics": "/Electronics-Accessories/b/?ie=UTF8&node=667823011&ref_=nav_cs_electronics",
	"books":       "/Books-Used-Books-Textbooks/b/?ie=UTF8&node=916520&ref_=nav_cs_books",
	"beauty":      "/Beauty/b/?ie=UTF8&node=6205124011&ref_=nav_cs_beauty",
	"toys":        "/Toys-Games/b/?ie=UTF8&node=6205517011&ref_=nav_cs_toys",
	"sports":      "/sporting-goods/b/?ie=UTF8&node=2242989011&ref_=nav_cs_sports",
	"computers":   "/Computers-Accessories/b/?ie=UTF8&node=2404990011&ref_=nav_cs_pc",
	"health":      "/Health-Personal-Care/b/?ie=UTF8&node=6205177011&ref_=nav_cs_hpc",
	"home":        "/Home-Improvement/b/?ie=UTF8&node=3006902011&ref_=nav_cs_hi",
	"fashion":     "/Fashion/b/?ie=UTF8&node=21204935011&ref_=nav_cs_fashion",
	"videogames":  "/video-games-hardware-accessories/b/?ie=UTF8&node=3198031&ref_=nav_cs_video_games",
	"grocery":     "/grocery/b/?ie=UTF8&node=6967215011&ref_=nav_cs_grocery",
	"pets":        "/pet-supplies-dog-cat-food-bed-toy/b/?ie=UTF8&node=6205514011&ref_=nav_cs_pets",
	"baby":        "/gp/browse.html?node=3561346011&ref_=nav_cs_baby",
}

// Locator is the address of one listing page to fetch
type Locator struct {
	Category string
	URL      string
}

// Catalog builds listing locators and canonical item links for one deployment
type Catalog struct {
	baseURL      string
	affiliateTag string
}

// New creates a catalog rooted at baseURL with the given affiliate tag
func New(baseURL, affiliateTag string) *Catalog {
	return &Catalog{
		baseURL:      strings.TrimRight(baseURL, "/"),
		affiliateTag: affiliateTag,
	}
}

// Keys returns all known category keys in stable order
func Keys() []string {
	keys := make([]string, 0, len(categoryPaths))
	for key := range categoryPaths {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Known reports whether the category key is mapped
func Known(key string) bool {
	_, ok := categoryPaths[key]
	return ok
}

// Locators expands a category key into listing locators. A known key yields
// one locator, an unknown key yields none, and the empty key yields every
// mapped category (full-catalog scan). Every locator requests ascending-price
// ordering.
func (c *Catalog) Locators(key string) []Locator {
	if key != "" {
		path, ok := categoryPaths[key]
		if !ok {
			return nil
		}
		return []Locator{{Category: key, URL: c.listingURL(path)}}
	}

	locators := make([]Locator, 0, len(categoryPaths))
	for _, k := range Keys() {
		locators = append(locators, Locator{Category: k, URL: c.listingURL(categoryPaths[k])})
	}
	return locators
}

// listingURL joins a path template with the sort marker, reusing the
// template's own query string when it has one
func (c *Catalog) listingURL(path string) string {
	if strings.Contains(path, "?") {
		return c.baseURL + path + "&" + SortMarker
	}
	return c.baseURL + path + "?" + SortMarker
}

// CanonicalLink builds the affiliate-tagged detail URL for an item. This link
// is the deal's dedup identity.
func (c *Catalog) CanonicalLink(itemID string) string {
	return c.baseURL + "/dp/" + itemID + "?tag=" + c.affiliateTag
}

// ExtractItemID pulls the catalog item identifier out of a detail link:
// the path segment following the /dp/ marker, query string ignored.
func ExtractItemID(href string) (string, error) {
	base := strings.Split(href, "?")[0]
	tail, err := helpers.GetSplitPart(base, "/dp/", 1)
	if err != nil {
		return "", errors.NewParse("catalog", "no item id marker in link: "+href, err)
	}
	id := strings.Split(tail, "/")[0]
	if id == "" {
		return "", errors.NewParse("catalog", "empty item id in link: "+href, nil)
	}
	return id, nil
}

var itemIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)

// ResolveTarget normalizes a user-supplied product reference, either a
// bare item ID or any detail page URL, to the item ID.
func ResolveTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.NewValidation("catalog", "empty product target")
	}
	if strings.Contains(target, "/") {
		return ExtractItemID(target)
	}
	if !itemIDPattern.MatchString(target) {
		return "", errors.NewValidation("catalog", "not a product link or item id: "+target)
	}
	return strings.ToUpper(target), nil
}
