package converter

import (
	"context"
	"fmt"
	"math"
	"strings"

	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/rates"
)

// UseCase runs a conversion against freshly provided rates
type UseCase struct {
	service  *Service
	provider rates.CurrencyProvider
}

// NewUseCase creates a conversion use case
func NewUseCase(service *Service, provider rates.CurrencyProvider) *UseCase {
	return &UseCase{service: service, provider: provider}
}

// Execute validates input, refreshes rates and converts
func (u *UseCase) Execute(ctx context.Context, amount float64, from, to string) (*Result, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, boterrors.NewValidationError("Amount must be a positive number.")
	}
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	for _, code := range []string{from, to} {
		if !u.service.IsSupported(code) {
			return nil, boterrors.NewValidationError(fmt.Sprintf("Unsupported currency: %s. Supported: %s.",
				code, strings.Join(u.service.SupportedCurrencies(), ", ")))
		}
	}

	if from != to {
		r, err := u.provider.GetRates(ctx)
		if err != nil {
			return nil, boterrors.NewUpstreamError("monobank", err)
		}
		u.service.UpdateRates(r)
	}

	res := u.service.Convert(amount, from, to)
	if res == nil {
		return nil, boterrors.NewConversionUnavailableError(from, to)
	}
	return res, nil
}
