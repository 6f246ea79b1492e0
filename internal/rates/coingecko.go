package rates

import (
	"context"
	"fmt"

	"github.com/yourusername/guildbot/internal/clock"
)

// CoinGeckoURL is the simple price endpoint for the tracked coins
const CoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin,ethereum,the-open-network&vs_currencies=usd,uah&include_24hr_change=true"

// CoinGeckoPingURL answers 200 while the CoinGecko API is up
const CoinGeckoPingURL = "https://api.coingecko.com/api/v3/ping"

type coinGeckoPrice struct {
	USD          float64 `json:"usd"`
	UAH          float64 `json:"uah"`
	USD24hChange float64 `json:"usd_24h_change"`
}

// CoinGeckoClient reads crypto prices from CoinGecko
type CoinGeckoClient struct {
	http  JSONGetter
	url   string
	clock clock.Clock
}

// NewCoinGeckoClient creates a client; url defaults to CoinGeckoURL
func NewCoinGeckoClient(http JSONGetter, url string, clk clock.Clock) *CoinGeckoClient {
	if url == "" {
		url = CoinGeckoURL
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &CoinGeckoClient{http: http, url: url, clock: clk}
}

// GetRates fetches BTC, ETH and TON prices
func (c *CoinGeckoClient) GetRates(ctx context.Context) (*CryptoRates, error) {
	raw := make(map[string]coinGeckoPrice)
	if err := c.http.GetJSON(ctx, "coingecko", c.url, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching coingecko prices: %w", err)
	}

	out := &CryptoRates{UpdatedAt: c.clock.Now()}
	out.BTC = toCryptoRate(raw, "bitcoin", "BTC", "Bitcoin")
	out.ETH = toCryptoRate(raw, "ethereum", "ETH", "Ethereum")
	out.TON = toCryptoRate(raw, "the-open-network", "TON", "Toncoin")
	return out, nil
}

func toCryptoRate(raw map[string]coinGeckoPrice, id, symbol, name string) *CryptoRate {
	p, ok := raw[id]
	if !ok {
		return nil
	}
	return &CryptoRate{
		Symbol:    symbol,
		Name:      name,
		PriceUSD:  p.USD,
		PriceUAH:  p.UAH,
		Change24h: p.USD24hChange,
	}
}
