package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocatorsKnownCategory(t *testing.T) {
	c := New("https://www.amazon.ca", "amznerrorsca-20")

	locators := c.Locators("electronics")
	assert.Len(t, locators, 1)
	assert.Equal(t, "electronics", locators[0].Category)
	assert.True(t, strings.HasPrefix(locators[0].URL, "https://www.amazon.ca/"))
	assert.True(t, strings.HasSuffix(locators[0].URL, SortMarker))
}

func TestLocatorsUnknownCategory(t *testing.T) {
	c := New("https://www.amazon.ca", "amznerrorsca-20")
	assert.Empty(t, c.Locators("nonexistent"))
}

func TestLocatorsAllCategories(t *testing.T) {
	c := New("https://www.amazon.ca", "amznerrorsca-20")

	locators := c.Locators("")
	assert.Len(t, locators, len(Keys()))

	for _, loc := range locators {
		assert.True(t, strings.HasSuffix(loc.URL, SortMarker),
			"locator %s must request ascending-price ordering", loc.URL)
		// The marker joins with & on templates that already carry a query
		// string and with ? otherwise, never doubling either.
		assert.Equal(t, 1, strings.Count(loc.URL, "?"), loc.URL)
	}
}

func TestListingURLJoinsSortMarker(t *testing.T) {
	c := New("https://www.amazon.ca", "tag-20")

	withQuery := c.listingURL("/b?node=123")
	assert.Equal(t, "https://www.amazon.ca/b?node=123&"+SortMarker, withQuery)

	withoutQuery := c.listingURL("/Best-Sellers-generic/zgbs/")
	assert.Equal(t, "https://www.amazon.ca/Best-Sellers-generic/zgbs/?"+SortMarker, withoutQuery)
}

func TestCanonicalLink(t *testing.T) {
	c := New("https://www.amazon.ca", "amznerrorsca-20")
	assert.Equal(t,
		"https://www.amazon.ca/dp/B00ABC123?tag=amznerrorsca-20",
		c.CanonicalLink("B00ABC123"))
}

func TestExtractItemID(t *testing.T) {
	tests := []struct {
		name    string
		href    string
		want    string
		wantErr bool
	}{
		{"plain detail path", "/Some-Product-Name/dp/B00ABC123/ref=sr_1_1", "B00ABC123", false},
		{"query string ignored", "/dp/B07XYZ9876?pd_rd_r=abc&psc=1", "B07XYZ9876", false},
		{"id at end of path", "/gadget/dp/B01QQQ1111", "B01QQQ1111", false},
		{"absolute url", "https://www.amazon.ca/thing/dp/B0TEST0000/", "B0TEST0000", false},
		{"no marker", "/gp/slredirect/picassoRedirect.html", "", true},
		{"empty id", "/product/dp/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractItemID(tt.href)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeysStable(t *testing.T) {
	keys := Keys()
	assert.Equal(t, keys, Keys())
	assert.Contains(t, keys, "electronics")
	assert.Contains(t, keys, "books")
	assert.True(t, Known("toys"))
	assert.False(t, Known("TOYS"))
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		want    string
		wantErr bool
	}{
		{"bare item id", "B07XYZ9876", "B07XYZ9876", false},
		{"lowercase item id normalized", "b07xyz9876", "B07XYZ9876", false},
		{"detail url", "https://www.amazon.ca/thing/dp/B07XYZ9876?psc=1", "B07XYZ9876", false},
		{"relative detail path", "/dp/B07XYZ9876", "B07XYZ9876", false},
		{"empty", "", "", true},
		{"not an id or link", "garbage", "", true},
		{"url without item id", "https://www.amazon.ca/gp/help", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTarget(tt.target)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
