package checkout

import (
	"github.com/example/hottubshop/pkg/models"
	"github.com/shopspring/decimal"
)

// DefaultVATRate is the German standard rate.
var DefaultVATRate = decimal.RequireFromString("0.19")

// ComputeTotals splits the gross cart total into net and VAT. Prices are gross prices, so
// net is gross/(1+vatRate) and VAT is the remainder. Both are rounded half away from zero
// to cents.
func ComputeTotals(items []models.CartItem, vatRate decimal.Decimal) models.Totals {
	gross := models.CartTotal(items)
	net := gross.Div(decimal.NewFromInt(1).Add(vatRate)).Round(2)
	return models.Totals{
		Net:   net,
		VAT:   gross.Sub(net).Round(2),
		Gross: gross,
	}
}
