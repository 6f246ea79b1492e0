package converter

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourusername/guildbot/internal/rates"
)

// FormatAmount renders v with at most 2 fraction digits and grouped thousands
func FormatAmount(v float64) string {
	return rates.GroupThousands(decimal.NewFromFloat(v).Round(2).String())
}

// FormatRate renders a rate with 4 decimals
func FormatRate(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// FormatConversion renders a result as "100 USD = 4,100 UAH" followed by the rate line
func FormatConversion(r *Result) string {
	return fmt.Sprintf("**%s %s = %s %s**\nRate: 1 %s = %s %s",
		FormatAmount(r.Amount), r.From, FormatAmount(r.Result), r.To,
		r.From, FormatRate(r.Rate), r.To)
}
