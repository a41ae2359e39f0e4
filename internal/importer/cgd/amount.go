package cgd

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer(".", "", " ", "", "\u00a0", "", "€", "", "EUR", "")

// parseEuropeanAmount reads "1.234,56" style amounts, with optional currency
// marks and grouping spaces, rounded to cents.
func parseEuropeanAmount(s string) (decimal.Decimal, error) {
	clean := strings.Replace(amountCleaner.Replace(s), ",", ".", 1)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}

	return d.Round(2), nil
}
