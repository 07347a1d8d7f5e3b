package deal

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"amznerrors/dealbot/pkg/errors"
)

var validate = validator.New()

// Deal is a fully validated listing that passed the discount filter.
// Link doubles as the dedup identity for the seen store.
type Deal struct {
	ItemID          string          `json:"item_id" validate:"required"`
	Title           string          `json:"title" validate:"required"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountPercent int             `json:"discount_percent" validate:"gte=0,lte=100"`
	Link            string          `json:"link" validate:"required,url"`
	Category        string          `json:"category"`
}

// New builds a Deal from parsed fields, computing the discount and
// rejecting anything that cannot be a real listing: non-positive sale
// price, original below sale, or missing identity fields.
func New(itemID, title string, salePrice, originalPrice decimal.Decimal, link, category string) (*Deal, error) {
	if salePrice.LessThanOrEqual(decimal.Zero) {
		return nil, errors.NewValidation("deal", "sale price must be positive")
	}
	if originalPrice.LessThan(salePrice) {
		return nil, errors.NewValidation("deal", "original price below sale price")
	}

	d := &Deal{
		ItemID:          strings.TrimSpace(itemID),
		Title:           strings.TrimSpace(title),
		SalePrice:       salePrice,
		OriginalPrice:   originalPrice,
		DiscountPercent: DiscountPercent(salePrice, originalPrice),
		Link:            strings.TrimSpace(link),
		Category:        category,
	}

	if err := validate.Struct(d); err != nil {
		return nil, errors.NewValidation("deal", err.Error())
	}
	return d, nil
}
