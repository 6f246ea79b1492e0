package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/converter"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/rates"
)

var currencyChoices = []Choice{
	{Name: "UAH", Value: "UAH"},
	{Name: "USD", Value: "USD"},
	{Name: "EUR", Value: "EUR"},
	{Name: "PLN", Value: "PLN"},
}

// CurrencyCommand implements /currency
type CurrencyCommand struct {
	meta
	provider rates.CurrencyProvider
	clock    clock.Clock
}

// NewCurrencyCommand creates a new currency command
func NewCurrencyCommand(provider rates.CurrencyProvider, clk clock.Clock) *CurrencyCommand {
	return &CurrencyCommand{
		meta:     meta{name: "currency", help: "Show USD, EUR and PLN rates against UAH", category: CategoryRates, deferred: true},
		provider: provider,
		clock:    clk,
	}
}

// Execute runs the currency command
func (c *CurrencyCommand) Execute(ctx *Context) (*Response, error) {
	r, err := c.provider.GetRates(ctx.Context())
	if err != nil {
		return nil, boterrors.NewUpstreamError("monobank", err)
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Description: rates.FormatCurrencyRates(r),
		Color:       colorDefault,
		Timestamp:   timestamp(c.clock),
	}), nil
}

// CryptoCommand implements /crypto
type CryptoCommand struct {
	meta
	provider rates.CryptoProvider
	clock    clock.Clock
}

// NewCryptoCommand creates a new crypto command
func NewCryptoCommand(provider rates.CryptoProvider, clk clock.Clock) *CryptoCommand {
	return &CryptoCommand{
		meta:     meta{name: "crypto", help: "Show BTC, ETH and TON prices", category: CategoryRates, deferred: true},
		provider: provider,
		clock:    clk,
	}
}

// Execute runs the crypto command
func (c *CryptoCommand) Execute(ctx *Context) (*Response, error) {
	r, err := c.provider.GetRates(ctx.Context())
	if err != nil {
		return nil, boterrors.NewUpstreamError("coingecko", err)
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Description: rates.FormatCryptoRates(r),
		Color:       0xf7931a,
		Timestamp:   timestamp(c.clock),
	}), nil
}

// ConvertCommand implements /convert
type ConvertCommand struct {
	meta
	useCase *converter.UseCase
}

// NewConvertCommand creates a new convert command
func NewConvertCommand(useCase *converter.UseCase) *ConvertCommand {
	return &ConvertCommand{
		meta: meta{
			name:     "convert",
			help:     "Convert an amount between currencies",
			category: CategoryRates,
			deferred: true,
			options: []Option{
				{Name: "amount", Description: "Amount to convert", Type: OptionNumber, Required: true, MinValue: float(0.01)},
				{Name: "from", Description: "Source currency", Type: OptionString, Required: true, Choices: currencyChoices},
				{Name: "to", Description: "Target currency", Type: OptionString, Required: true, Choices: currencyChoices},
			},
		},
		useCase: useCase,
	}
}

// Execute runs the convert command
func (c *ConvertCommand) Execute(ctx *Context) (*Response, error) {
	amount, ok := ctx.Float("amount")
	if !ok {
		return nil, boterrors.NewInvalidSyntaxError("convert", "/convert amount:<number> from:<code> to:<code>")
	}
	res, err := c.useCase.Execute(ctx.Context(), amount, ctx.String("from"), ctx.String("to"))
	if err != nil {
		return nil, err
	}
	return NewResponse("💱 " + converter.FormatConversion(res)), nil
}
