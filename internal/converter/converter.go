// Package converter converts amounts between UAH and the supported foreign
// currencies using bank buy/sell quotes.
package converter

import (
	"strings"
	"sync"

	"github.com/yourusername/guildbot/internal/rates"
)

// UAH is the pivot currency every rate is quoted against
const UAH = "UAH"

var supported = []string{UAH, "USD", "EUR", "PLN"}

type quote struct {
	buy  float64
	sell float64
}

// Result is a successful conversion
type Result struct {
	Amount float64
	From   string
	To     string
	Result float64
	Rate   float64
}

// Service holds the latest quotes and converts between currencies
type Service struct {
	mu     sync.RWMutex
	quotes map[string]quote
}

// NewService creates a service with no rates loaded
func NewService() *Service {
	return &Service{quotes: make(map[string]quote)}
}

// UpdateRates replaces every stored quote from a provider snapshot.
// A rate with buy and sell is stored as-is; a cross-only rate is used for both sides;
// anything else leaves the currency without a quote. Zero or negative values count as absent.
func (s *Service) UpdateRates(r *rates.CurrencyRates) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes = make(map[string]quote)
	for _, code := range []string{"USD", "EUR", "PLN"} {
		s.setLocked(code, r.ByCode(code))
	}
}

// SetRate stores a single currency's quote using the same rules as UpdateRates
func (s *Service) SetRate(code string, buy, sell, cross *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(strings.ToUpper(code), &rates.CurrencyRate{Buy: buy, Sell: sell, Cross: cross})
}

func (s *Service) setLocked(code string, r *rates.CurrencyRate) {
	switch {
	case r == nil:
		delete(s.quotes, code)
	case positive(r.Buy) && positive(r.Sell):
		s.quotes[code] = quote{buy: *r.Buy, sell: *r.Sell}
	case positive(r.Cross):
		s.quotes[code] = quote{buy: *r.Cross, sell: *r.Cross}
	default:
		delete(s.quotes, code)
	}
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

// Convert converts amount from one currency to another.
// Returns nil when a required quote is missing.
func (s *Service) Convert(amount float64, from, to string) *Result {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return &Result{Amount: amount, From: from, To: to, Result: amount, Rate: 1}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rate float64
	switch {
	case from == UAH:
		q, ok := s.quotes[to]
		if !ok || q.sell == 0 {
			return nil
		}
		rate = 1 / q.sell
	case to == UAH:
		q, ok := s.quotes[from]
		if !ok {
			return nil
		}
		rate = q.buy
	default:
		qFrom, okFrom := s.quotes[from]
		qTo, okTo := s.quotes[to]
		if !okFrom || !okTo || qTo.sell == 0 {
			return nil
		}
		rate = qFrom.buy / qTo.sell
	}

	return &Result{Amount: amount, From: from, To: to, Result: amount * rate, Rate: rate}
}

// SupportedCurrencies returns the currency codes the service understands
func (s *Service) SupportedCurrencies() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether code is a supported currency, ignoring case
func (s *Service) IsSupported(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range supported {
		if c == code {
			return true
		}
	}
	return false
}
