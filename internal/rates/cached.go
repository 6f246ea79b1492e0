package rates

import (
	"context"
	"time"

	"github.com/yourusername/guildbot/internal/cache"
)

const (
	currencyCacheKey = "rates:currency"
	cryptoCacheKey   = "rates:crypto"
)

// CachedCurrencyProvider serves currency rates from cache, loading through on a miss
type CachedCurrencyProvider struct {
	next   CurrencyProvider
	loader *cache.Loader[*CurrencyRates]
	ttl    time.Duration
}

// NewCachedCurrencyProvider wraps next with a TTL cache
func NewCachedCurrencyProvider(next CurrencyProvider, c cache.Cache, ttl time.Duration) *CachedCurrencyProvider {
	return &CachedCurrencyProvider{next: next, loader: cache.NewLoader[*CurrencyRates](c), ttl: ttl}
}

// GetRates returns cached rates or fetches fresh ones
func (p *CachedCurrencyProvider) GetRates(ctx context.Context) (*CurrencyRates, error) {
	return p.loader.Get(ctx, currencyCacheKey, p.ttl, p.next.GetRates)
}

// Loader exposes the underlying loader so callers can hook cache errors
func (p *CachedCurrencyProvider) Loader() *cache.Loader[*CurrencyRates] {
	return p.loader
}

// CachedCryptoProvider serves crypto prices from cache, loading through on a miss
type CachedCryptoProvider struct {
	next   CryptoProvider
	loader *cache.Loader[*CryptoRates]
	ttl    time.Duration
}

// NewCachedCryptoProvider wraps next with a TTL cache
func NewCachedCryptoProvider(next CryptoProvider, c cache.Cache, ttl time.Duration) *CachedCryptoProvider {
	return &CachedCryptoProvider{next: next, loader: cache.NewLoader[*CryptoRates](c), ttl: ttl}
}

// GetRates returns cached prices or fetches fresh ones
func (p *CachedCryptoProvider) GetRates(ctx context.Context) (*CryptoRates, error) {
	return p.loader.Get(ctx, cryptoCacheKey, p.ttl, p.next.GetRates)
}

// Loader exposes the underlying loader so callers can hook cache errors
func (p *CachedCryptoProvider) Loader() *cache.Loader[*CryptoRates] {
	return p.loader
}
