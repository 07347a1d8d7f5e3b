package deal

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"amznerrors/dealbot/pkg/errors"
)

var priceCleaner = strings.NewReplacer("$", "", ",", "", " ", "", " ", "")

func cleanPrice(raw string) string {
	s := priceCleaner.Replace(strings.TrimSpace(raw))
	// Amazon renders the decimal point inside the whole-price node.
	return strings.TrimSuffix(s, ".")
}

// ParseListingPrice joins the whole and fraction parts of a split price
// node into a decimal amount. A missing fraction means a whole-dollar
// price, so it defaults to "00".
func ParseListingPrice(whole, fraction string) (decimal.Decimal, error) {
	w := cleanPrice(whole)
	if w == "" {
		return decimal.Zero, errors.NewParse("price", "empty whole part", nil)
	}

	f := strings.TrimSpace(fraction)
	if f == "" {
		f = "00"
	}

	d, err := decimal.NewFromString(w + "." + f)
	if err != nil {
		return decimal.Zero, errors.NewParse("price", "unparseable price "+strconv.Quote(whole+"."+fraction), err)
	}
	return d, nil
}

// ParsePrice parses a single-node price such as "$2,099.99".
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := cleanPrice(raw)
	if s == "" {
		return decimal.Zero, errors.NewParse("price", "empty price", nil)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.NewParse("price", "unparseable price "+strconv.Quote(raw), err)
	}
	return d, nil
}
