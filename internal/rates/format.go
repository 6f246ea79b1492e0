package rates

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const noData = "no data"

// FormatCurrencyRates renders fiat rates as markdown lines
func FormatCurrencyRates(r *CurrencyRates) string {
	var sb strings.Builder
	sb.WriteString("💱 **Currency rates (Monobank)**\n")
	for _, code := range []string{"USD", "EUR", "PLN"} {
		sb.WriteString(formatCurrencyLine(code, r.ByCode(code)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCurrencyLine(code string, rate *CurrencyRate) string {
	label := fmt.Sprintf("**%s/UAH**", code)
	switch {
	case rate == nil:
		return label + ": " + noData
	case rate.Buy != nil && rate.Sell != nil:
		return fmt.Sprintf("%s: buy %s / sell %s", label, FormatNumber(*rate.Buy, 2), FormatNumber(*rate.Sell, 2))
	case rate.Cross != nil:
		return fmt.Sprintf("%s: %s (cross)", label, FormatNumber(*rate.Cross, 2))
	default:
		return label + ": " + noData
	}
}

// FormatCryptoRates renders crypto prices as markdown lines
func FormatCryptoRates(r *CryptoRates) string {
	var sb strings.Builder
	sb.WriteString("🪙 **Crypto (CoinGecko)**\n")
	coins := []struct {
		symbol string
		rate   *CryptoRate
	}{{"BTC", nil}, {"ETH", nil}, {"TON", nil}}
	if r != nil {
		coins[0].rate, coins[1].rate, coins[2].rate = r.BTC, r.ETH, r.TON
	}
	for _, c := range coins {
		if c.rate == nil {
			fmt.Fprintf(&sb, "**%s**: %s\n", c.symbol, noData)
			continue
		}
		fmt.Fprintf(&sb, "**%s** (%s): $%s | ₴%s | %s\n",
			c.rate.Symbol, c.rate.Name,
			FormatNumber(c.rate.PriceUSD, 2), FormatNumber(c.rate.PriceUAH, 2),
			FormatChange(c.rate.Change24h))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatChange renders a 24h change such as "+1.23% ↑" or "-0.50% ↓"
func FormatChange(change float64) string {
	d := decimal.NewFromFloat(change).Round(2)
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(2) + "% ↑"
	}
	return d.StringFixed(2) + "% ↓"
}

// FormatNumber renders v with exactly places fraction digits and grouped thousands
func FormatNumber(v float64, places int32) string {
	return GroupThousands(decimal.NewFromFloat(v).StringFixed(places))
}

// GroupThousands inserts commas into the integer part of a decimal string
func GroupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var sb strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(ch)
	}
	return sign + sb.String() + frac
}
