// Package mockapi provides canned upstream responses for running the bot in test mode.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/guildbot/internal/ai"
	"github.com/yourusername/guildbot/internal/rates"
)

// MockCompleter provides canned AI completions for testing without a real API key
type MockCompleter struct {
	mu sync.Mutex
	// Map of system prompts to mock responses
	responses map[string]string
	// Simulate latency
	latency time.Duration
	// Fail every call when set
	fail  bool
	calls []ai.Options
}

// NewCompleter creates a new mock completer
func NewCompleter() *MockCompleter {
	return &MockCompleter{
		responses: map[string]string{
			ai.AskPrompt:     "This is a test answer.",
			ai.SummaryPrompt: "Test summary: people talked about things.",
			ai.RoastPrompt:   "You type like a keyboard owes you money.",
			ai.ToxicPrompt:   "Wow, another message. Groundbreaking.",
		},
	}
}

// Complete returns the canned response for the conversation's system prompt
func (m *MockCompleter) Complete(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	m.mu.Lock()
	latency, fail := m.latency, m.fail
	m.calls = append(m.calls, opts)
	m.mu.Unlock()

	// Simulate latency if configured
	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail {
		return "", errors.New("mock completion failed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		if msg.Role != ai.RoleSystem {
			continue
		}
		if resp, ok := m.responses[msg.Content]; ok {
			return resp, nil
		}
	}
	return fmt.Sprintf("Mock response to %d message(s).", len(messages)), nil
}

// SetLatency sets the simulated latency for mock responses
func (m *MockCompleter) SetLatency(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = latency
}

// SetFail makes every subsequent call fail
func (m *MockCompleter) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// SetResponse sets a custom response for a system prompt
func (m *MockCompleter) SetResponse(systemPrompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[systemPrompt] = response
}

// Configured always reports true so AI commands run in test mode
func (m *MockCompleter) Configured() bool {
	return true
}

// Calls returns the options of every call so far
func (m *MockCompleter) Calls() []ai.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.Options, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockRates serves fixed currency and crypto rates
type MockRates struct {
	Currency *rates.CurrencyRates
	Crypto   *rates.CryptoRates
	Err      error
}

// NewRates returns providers preloaded with plausible values
func NewRates() *MockRates {
	now := time.Now()
	return &MockRates{
		Currency: &rates.CurrencyRates{
			USD:       &rates.CurrencyRate{Pair: "USD/UAH", Buy: rates.Float(41.0), Sell: rates.Float(41.5)},
			EUR:       &rates.CurrencyRate{Pair: "EUR/UAH", Buy: rates.Float(44.0), Sell: rates.Float(44.5)},
			PLN:       &rates.CurrencyRate{Pair: "PLN/UAH", Cross: rates.Float(10.5)},
			UpdatedAt: now,
		},
		Crypto: &rates.CryptoRates{
			BTC:       &rates.CryptoRate{Symbol: "BTC", Name: "Bitcoin", PriceUSD: 97000, PriceUAH: 4000000, Change24h: 1.2},
			ETH:       &rates.CryptoRate{Symbol: "ETH", Name: "Ethereum", PriceUSD: 3200, PriceUAH: 132000, Change24h: -0.4},
			TON:       &rates.CryptoRate{Symbol: "TON", Name: "Toncoin", PriceUSD: 5.1, PriceUAH: 210, Change24h: 3.5},
			UpdatedAt: now,
		},
	}
}

// CurrencyProvider adapts the mock to rates.CurrencyProvider
func (m *MockRates) CurrencyProvider() rates.CurrencyProvider {
	return currencyFunc(func(context.Context) (*rates.CurrencyRates, error) {
		return m.Currency, m.Err
	})
}

// CryptoProvider adapts the mock to rates.CryptoProvider
func (m *MockRates) CryptoProvider() rates.CryptoProvider {
	return cryptoFunc(func(context.Context) (*rates.CryptoRates, error) {
		return m.Crypto, m.Err
	})
}

type currencyFunc func(context.Context) (*rates.CurrencyRates, error)

func (f currencyFunc) GetRates(ctx context.Context) (*rates.CurrencyRates, error) { return f(ctx) }

type cryptoFunc func(context.Context) (*rates.CryptoRates, error)

func (f cryptoFunc) GetRates(ctx context.Context) (*rates.CryptoRates, error) { return f(ctx) }
