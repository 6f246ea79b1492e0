package commands

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	boterrors "github.com/yourusername/guildbot/internal/errors"
)

// IntN returns a uniform integer in [0, n)
type IntN func(n int) int

func orDefault(r IntN) IntN {
	if r == nil {
		return rand.Intn
	}
	return r
}

// CoinflipCommand implements /coinflip
type CoinflipCommand struct {
	meta
	rand IntN
}

// NewCoinflipCommand creates a new coinflip command; r may be nil
func NewCoinflipCommand(r IntN) *CoinflipCommand {
	return &CoinflipCommand{
		meta: meta{name: "coinflip", help: "Flip a coin", category: CategoryFun},
		rand: orDefault(r),
	}
}

// Execute runs the coinflip command
func (c *CoinflipCommand) Execute(ctx *Context) (*Response, error) {
	if c.rand(2) == 0 {
		return NewResponse("🪙 **Heads!**"), nil
	}
	return NewResponse("🪙 **Tails!**"), nil
}

// RollCommand implements /roll
type RollCommand struct {
	meta
	rand IntN
}

// NewRollCommand creates a new roll command; r may be nil
func NewRollCommand(r IntN) *RollCommand {
	return &RollCommand{
		meta: meta{
			name:     "roll",
			help:     "Roll dice",
			category: CategoryFun,
			options: []Option{
				{Name: "dice", Description: "Number of dice (1-10)", Type: OptionInteger, MinValue: float(1), MaxValue: float(10)},
				{Name: "sides", Description: "Sides per die (2-100)", Type: OptionInteger, MinValue: float(2), MaxValue: float(100)},
			},
		},
		rand: orDefault(r),
	}
}

// Execute runs the roll command
func (c *RollCommand) Execute(ctx *Context) (*Response, error) {
	dice, ok := ctx.Int("dice")
	if !ok {
		dice = 1
	}
	sides, ok := ctx.Int("sides")
	if !ok {
		sides = 6
	}
	if dice < 1 || dice > 10 || sides < 2 || sides > 100 {
		return nil, boterrors.NewValidationError("Use 1-10 dice with 2-100 sides.")
	}

	rolls := make([]string, dice)
	total := 0
	for i := range rolls {
		n := c.rand(int(sides)) + 1
		total += n
		rolls[i] = strconv.Itoa(n)
	}

	icon := "🎯"
	if sides == 6 {
		icon = "🎲"
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title: icon + " Dice roll",
		Color: colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🎯 Rolls", Value: strings.Join(rolls, ", "), Inline: true},
			{Name: "📊 Total", Value: fmt.Sprintf("**%d**", total), Inline: true},
			{Name: "⚙️ Dice", Value: fmt.Sprintf("%dd%d", dice, sides), Inline: true},
		},
	}), nil
}

type eightBallAnswer struct {
	text  string
	color int
}

var eightBallAnswers = []eightBallAnswer{
	{"It is certain", colorGood},
	{"It is decidedly so", colorGood},
	{"Without a doubt", colorGood},
	{"Yes, definitely", colorGood},
	{"You may rely on it", colorGood},
	{"As I see it, yes", colorGood},
	{"Most likely", colorGood},
	{"Outlook good", colorGood},
	{"Signs point to yes", colorGood},
	{"Yes", colorGood},
	{"Reply hazy, try again", colorWarn},
	{"Ask again later", colorWarn},
	{"Better not tell you now", colorWarn},
	{"Cannot predict now", colorWarn},
	{"Concentrate and ask again", colorWarn},
	{"Don't count on it", colorBad},
	{"My reply is no", colorBad},
	{"My sources say no", colorBad},
	{"Outlook not so good", colorBad},
	{"Very doubtful", colorBad},
}

// EightBallCommand implements /8ball
type EightBallCommand struct {
	meta
	rand IntN
}

// NewEightBallCommand creates a new 8ball command; r may be nil
func NewEightBallCommand(r IntN) *EightBallCommand {
	return &EightBallCommand{
		meta: meta{
			name:     "8ball",
			help:     "Ask the magic 8-ball",
			category: CategoryFun,
			options: []Option{
				{Name: "question", Description: "Your question", Type: OptionString, Required: true, MaxLength: 500},
			},
		},
		rand: orDefault(r),
	}
}

// Execute runs the 8ball command
func (c *EightBallCommand) Execute(ctx *Context) (*Response, error) {
	question := ctx.String("question")
	if question == "" {
		return nil, boterrors.NewInvalidSyntaxError("8ball", "/8ball question:<text>")
	}
	answer := eightBallAnswers[c.rand(len(eightBallAnswers))]
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title: "🎱 Magic 8-ball",
		Color: answer.color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "❓ Question", Value: question},
			{Name: "🔮 Answer", Value: answer.text},
		},
	}), nil
}

// ChooseCommand implements /choose
type ChooseCommand struct {
	meta
	rand IntN
}

// NewChooseCommand creates a new choose command; r may be nil
func NewChooseCommand(r IntN) *ChooseCommand {
	return &ChooseCommand{
		meta: meta{
			name:     "choose",
			help:     "Pick one of several comma separated options",
			category: CategoryFun,
			options: []Option{
				{Name: "options", Description: "Options separated by commas", Type: OptionString, Required: true},
			},
		},
		rand: orDefault(r),
	}
}

// Execute runs the choose command
func (c *ChooseCommand) Execute(ctx *Context) (*Response, error) {
	var choices []string
	for _, part := range strings.Split(ctx.String("options"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			choices = append(choices, part)
		}
	}
	if len(choices) < 2 {
		return nil, boterrors.NewValidationError("Give at least two options separated by commas.")
	}
	return NewResponse(fmt.Sprintf("🤔 I choose: **%s**", choices[c.rand(len(choices))])), nil
}

// RandomCommand implements /random
type RandomCommand struct {
	meta
	rand IntN
}

// NewRandomCommand creates a new random command; r may be nil
func NewRandomCommand(r IntN) *RandomCommand {
	return &RandomCommand{
		meta: meta{
			name:     "random",
			help:     "Generate a random number",
			category: CategoryFun,
			options: []Option{
				{Name: "min", Description: "Minimum (default 1)", Type: OptionInteger},
				{Name: "max", Description: "Maximum (default 100)", Type: OptionInteger},
			},
		},
		rand: orDefault(r),
	}
}

// Execute runs the random command
func (c *RandomCommand) Execute(ctx *Context) (*Response, error) {
	lo, ok := ctx.Int("min")
	if !ok {
		lo = 1
	}
	hi, ok := ctx.Int("max")
	if !ok {
		hi = 100
	}
	if lo >= hi {
		return nil, boterrors.NewValidationError("Minimum must be less than maximum.")
	}
	n := lo + int64(c.rand(int(hi-lo+1)))
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       "🎲 Random number",
		Description: fmt.Sprintf("**%d**", n),
		Color:       colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Range", Value: fmt.Sprintf("%d - %d", lo, hi), Inline: true},
		},
	}), nil
}
