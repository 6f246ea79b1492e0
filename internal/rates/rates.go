// Package rates fetches currency and crypto exchange rates.
package rates

import (
	"context"
	"time"
)

// CurrencyRate is one currency against UAH.
// Monobank quotes some pairs with buy/sell and others with a cross rate only.
type CurrencyRate struct {
	Pair  string   `json:"pair"`
	Buy   *float64 `json:"buy,omitempty"`
	Sell  *float64 `json:"sell,omitempty"`
	Cross *float64 `json:"cross,omitempty"`
}

// CurrencyRates holds the supported fiat rates
type CurrencyRates struct {
	USD       *CurrencyRate `json:"usd,omitempty"`
	EUR       *CurrencyRate `json:"eur,omitempty"`
	PLN       *CurrencyRate `json:"pln,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ByCode returns the rate for an ISO code, or nil
func (r *CurrencyRates) ByCode(code string) *CurrencyRate {
	if r == nil {
		return nil
	}
	switch code {
	case "USD":
		return r.USD
	case "EUR":
		return r.EUR
	case "PLN":
		return r.PLN
	}
	return nil
}

// CryptoRate is one coin priced in USD and UAH
type CryptoRate struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	PriceUSD  float64 `json:"price_usd"`
	PriceUAH  float64 `json:"price_uah"`
	Change24h float64 `json:"change_24h"`
}

// CryptoRates holds the tracked coins
type CryptoRates struct {
	BTC       *CryptoRate `json:"btc,omitempty"`
	ETH       *CryptoRate `json:"eth,omitempty"`
	TON       *CryptoRate `json:"ton,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CurrencyProvider supplies fiat rates
type CurrencyProvider interface {
	GetRates(ctx context.Context) (*CurrencyRates, error)
}

// CryptoProvider supplies crypto prices
type CryptoProvider interface {
	GetRates(ctx context.Context) (*CryptoRates, error)
}

// JSONGetter is the subset of upstream.Client the clients need
type JSONGetter interface {
	GetJSON(ctx context.Context, service, url string, headers map[string]string, out interface{}) error
}

// Float returns a pointer to v, for building rates by hand
func Float(v float64) *float64 {
	return &v
}
