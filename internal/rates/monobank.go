package rates

import (
	"context"
	"fmt"

	"github.com/yourusername/guildbot/internal/clock"
)

const (
	// MonobankURL is the public currency endpoint
	MonobankURL = "https://api.monobank.ua/bank/currency"

	codeUAH = 980
	codeUSD = 840
	codeEUR = 978
	codePLN = 985
)

type monobankRate struct {
	CurrencyCodeA int      `json:"currencyCodeA"`
	CurrencyCodeB int      `json:"currencyCodeB"`
	Date          int64    `json:"date"`
	RateBuy       *float64 `json:"rateBuy"`
	RateSell      *float64 `json:"rateSell"`
	RateCross     *float64 `json:"rateCross"`
}

// MonobankClient reads fiat rates from Monobank
type MonobankClient struct {
	http  JSONGetter
	url   string
	clock clock.Clock
}

// NewMonobankClient creates a client; url defaults to MonobankURL
func NewMonobankClient(http JSONGetter, url string, clk clock.Clock) *MonobankClient {
	if url == "" {
		url = MonobankURL
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &MonobankClient{http: http, url: url, clock: clk}
}

// GetRates fetches USD, EUR and PLN against UAH
func (c *MonobankClient) GetRates(ctx context.Context) (*CurrencyRates, error) {
	var raw []monobankRate
	if err := c.http.GetJSON(ctx, "monobank", c.url, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching monobank rates: %w", err)
	}

	out := &CurrencyRates{UpdatedAt: c.clock.Now()}
	for _, r := range raw {
		if r.CurrencyCodeB != codeUAH {
			continue
		}
		switch r.CurrencyCodeA {
		case codeUSD:
			out.USD = toCurrencyRate("USD/UAH", r)
		case codeEUR:
			out.EUR = toCurrencyRate("EUR/UAH", r)
		case codePLN:
			out.PLN = toCurrencyRate("PLN/UAH", r)
		}
	}
	return out, nil
}

func toCurrencyRate(pair string, r monobankRate) *CurrencyRate {
	return &CurrencyRate{Pair: pair, Buy: r.RateBuy, Sell: r.RateSell, Cross: r.RateCross}
}
