package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Supplier  string          `json:"supplier"`
	Sku       string          `json:"sku"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Stock     int             `json:"stock"`
	CostPrice decimal.Decimal `json:"cost_price"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Markup    string          `json:"markup"`
	Barcode   string          `json:"barcode"`
	Year      *int            `json:"year"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// ComputeMarkup returns the margin of sale over cost as a percentage string
// such as "90.48%". A zero cost yields "0.00%".
func ComputeMarkup(cost, sale decimal.Decimal) string {
	if cost.IsZero() {
		return "0.00%"
	}
	return sale.Sub(cost).Div(cost).Mul(hundred).StringFixed(2) + "%"
}
