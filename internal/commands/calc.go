package commands

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
)

const (
	maxExpressionLength = 200
	maxExpressionDepth  = 32
	divisionPrecision   = 16

	qrEndpoint     = "https://api.qrserver.com/v1/create-qr-code/"
	maxQRText      = 500
	defaultQRSize  = 200
	minQRSize      = 100
	maxQRSize      = 500
	chatStatsLimit = 500
	topAuthors     = 5
	topWords       = 10
	minWordLength  = 4
)

var (
	expressionChars = regexp.MustCompile(`^[0-9+\-*/().%\s]+$`)
	linkPattern     = regexp.MustCompile(`https?://\S+`)

	errDivisionByZero = errors.New("division by zero")
)

// Evaluate computes an arithmetic expression of numbers, + - * / %, and
// parentheses with exact decimal arithmetic
func Evaluate(expr string) (decimal.Decimal, error) {
	p := &exprParser{src: []rune(expr)}
	v, err := p.sum(0)
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return decimal.Zero, fmt.Errorf("unexpected %q at %d", p.src[p.pos], p.pos+1)
	}
	return v, nil
}

type exprParser struct {
	src []rune
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *exprParser) peek() rune {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) sum(depth int) (decimal.Decimal, error) {
	left, err := p.product(depth)
	if err != nil {
		return left, err
	}
	for {
		switch p.peek() {
		case '+', '-':
			op := p.src[p.pos]
			p.pos++
			right, err := p.product(depth)
			if err != nil {
				return left, err
			}
			if op == '+' {
				left = left.Add(right)
			} else {
				left = left.Sub(right)
			}
		default:
			return left, nil
		}
	}
}

func (p *exprParser) product(depth int) (decimal.Decimal, error) {
	left, err := p.unary(depth)
	if err != nil {
		return left, err
	}
	for {
		switch p.peek() {
		case '*', '/', '%':
			op := p.src[p.pos]
			p.pos++
			right, err := p.unary(depth)
			if err != nil {
				return left, err
			}
			switch op {
			case '*':
				left = left.Mul(right)
			case '/':
				if right.IsZero() {
					return left, errDivisionByZero
				}
				left = left.DivRound(right, divisionPrecision)
			case '%':
				if right.IsZero() {
					return left, errDivisionByZero
				}
				left = left.Mod(right)
			}
		default:
			return left, nil
		}
	}
}

func (p *exprParser) unary(depth int) (decimal.Decimal, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.unary(depth + 1)
		return v.Neg(), err
	case '+':
		p.pos++
		return p.unary(depth + 1)
	}
	return p.primary(depth)
}

func (p *exprParser) primary(depth int) (decimal.Decimal, error) {
	if depth > maxExpressionDepth {
		return decimal.Zero, errors.New("expression is nested too deeply")
	}
	switch r := p.peek(); {
	case r == '(':
		p.pos++
		v, err := p.sum(depth + 1)
		if err != nil {
			return v, err
		}
		if p.peek() != ')' {
			return v, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case r == '.' || unicode.IsDigit(r):
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] == '.' || unicode.IsDigit(p.src[p.pos])) {
			p.pos++
		}
		return decimal.NewFromString(string(p.src[start:p.pos]))
	case r == 0:
		return decimal.Zero, errors.New("unexpected end of expression")
	default:
		return decimal.Zero, fmt.Errorf("unexpected %q at %d", r, p.pos+1)
	}
}

// MathCommand implements /math
type MathCommand struct {
	meta
}

// NewMathCommand creates a new math command
func NewMathCommand() *MathCommand {
	return &MathCommand{meta{
		name:     "math",
		help:     "Calculate an arithmetic expression",
		category: CategoryTools,
		options: []Option{
			{Name: "expression", Description: "For example (2 + 3) * 4 / 7", Type: OptionString, Required: true, MaxLength: maxExpressionLength},
		},
	}}
}

// Execute runs the math command
func (c *MathCommand) Execute(ctx *Context) (*Response, error) {
	expr := strings.TrimSpace(ctx.String("expression"))
	if expr == "" {
		return nil, boterrors.NewInvalidSyntaxError("math", "/math expression:<expression>")
	}
	if len(expr) > maxExpressionLength || !expressionChars.MatchString(expr) {
		return nil, boterrors.NewValidationError("Only numbers, + - * / %, parentheses and spaces are allowed.")
	}
	v, err := Evaluate(expr)
	if err != nil {
		return nil, boterrors.NewValidationError("Can't calculate that: " + err.Error())
	}
	return NewResponse(fmt.Sprintf("🧮 `%s` = **%s**", expr, v.Round(10).String())), nil
}

// QRCommand implements /qr
type QRCommand struct {
	meta
}

// NewQRCommand creates a new qr command
func NewQRCommand() *QRCommand {
	return &QRCommand{meta{
		name:     "qr",
		help:     "Turn text or a link into a QR code",
		category: CategoryTools,
		options: []Option{
			{Name: "text", Description: "Text or URL", Type: OptionString, Required: true, MaxLength: maxQRText},
			{Name: "size", Description: "Image size in pixels (100-500)", Type: OptionInteger, MinValue: float(minQRSize), MaxValue: float(maxQRSize)},
		},
	}}
}

// QRCodeURL returns the image address of a size x size QR code for text
func QRCodeURL(text string, size int) string {
	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", size, size))
	q.Set("data", text)
	return qrEndpoint + "?" + q.Encode()
}

// Execute runs the qr command
func (c *QRCommand) Execute(ctx *Context) (*Response, error) {
	text := ctx.String("text")
	if text == "" {
		return nil, boterrors.NewInvalidSyntaxError("qr", "/qr text:<text> [size]")
	}
	if len([]rune(text)) > maxQRText {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Text must be at most %d characters.", maxQRText))
	}
	size := defaultQRSize
	if n, ok := ctx.Int("size"); ok {
		if n < minQRSize || n > maxQRSize {
			return nil, boterrors.NewValidationError(fmt.Sprintf("Size must be between %d and %d.", minQRSize, maxQRSize))
		}
		size = int(n)
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       "📱 QR code",
		Color:       colorDefault,
		Description: "`" + truncateRunes(text, 200) + "`",
		Image:       &discordgo.MessageEmbedImage{URL: QRCodeURL(text, size)},
	}), nil
}

// stopWords are skipped when counting popular words
var stopWords = map[string]bool{
	// en
	"that": true, "this": true, "with": true, "have": true, "from": true, "what": true,
	"they": true, "will": true, "would": true, "there": true, "their": true, "about": true,
	"just": true, "like": true, "been": true, "were": true, "when": true, "your": true,
	"then": true, "than": true, "them": true, "some": true, "into": true, "only": true,
	"also": true, "does": true, "dont": true, "it's": true, "i'm": true,
	// ru
	"это": true, "если": true, "чтобы": true, "когда": true, "тоже": true, "только": true,
	"есть": true, "была": true, "было": true, "были": true, "будет": true, "тебя": true,
	"меня": true, "него": true, "очень": true, "можно": true, "потому": true, "здесь": true,
	"ещё": true, "еще": true, "даже": true, "вот": true, "как": true, "так": true,
	// uk
	"який": true, "яка": true, "якщо": true, "тому": true, "коли": true, "також": true,
	"тільки": true, "буде": true, "було": true, "були": true, "мене": true, "тебе": true,
	"дуже": true, "можна": true, "теж": true, "саме": true, "вона": true, "вони": true,
}

// ChatStats summarizes a window of channel activity
type ChatStats struct {
	Messages    int
	Authors     []Count
	PeakHour    int
	PeakCount   int
	Attachments int
	Links       int
	Words       []Count
	TopMessage  *ChatMessage
}

// Count is a label with an occurrence count
type Count struct {
	Key string
	N   int
}

// ComputeChatStats analyses non-bot messages
func ComputeChatStats(messages []ChatMessage) ChatStats {
	var st ChatStats
	authors := make(map[string]int)
	words := make(map[string]int)
	var hours [24]int

	for i := range messages {
		m := &messages[i]
		if m.Bot {
			continue
		}
		st.Messages++
		authors[m.AuthorID]++
		hours[m.Timestamp.UTC().Hour()]++
		st.Attachments += m.Attachments
		st.Links += len(linkPattern.FindAllString(m.Content, -1))
		if m.Reactions > 0 && (st.TopMessage == nil || m.Reactions > st.TopMessage.Reactions) {
			st.TopMessage = m
		}

		text := linkPattern.ReplaceAllString(strings.ToLower(m.Content), " ")
		for _, w := range strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		}) {
			w = strings.Trim(w, "'")
			if len([]rune(w)) >= minWordLength && !stopWords[w] {
				words[w]++
			}
		}
	}

	for h, n := range hours {
		if n > st.PeakCount {
			st.PeakHour, st.PeakCount = h, n
		}
	}
	st.Authors = topCounts(authors, topAuthors)
	st.Words = topCounts(words, topWords)
	return st
}

func topCounts(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ChatStatsCommand implements /summary
type ChatStatsCommand struct {
	meta
	clock clock.Clock
}

// NewChatStatsCommand creates a new summary command
func NewChatStatsCommand(clk clock.Clock) *ChatStatsCommand {
	return &ChatStatsCommand{
		meta: meta{
			name:     "summary",
			help:     "Show activity statistics for this channel",
			category: CategoryInfo,
			deferred: true,
			options: []Option{
				{Name: "period", Description: "How far back to look", Type: OptionString, Choices: []Choice{
					{Name: "1 hour", Value: "1h"},
					{Name: "6 hours", Value: "6h"},
					{Name: "12 hours", Value: "12h"},
					{Name: "1 day", Value: "1d"},
					{Name: "3 days", Value: "3d"},
				}},
			},
		},
		clock: clk,
	}
}

// Execute runs the summary command
func (c *ChatStatsCommand) Execute(ctx *Context) (*Response, error) {
	period := ctx.String("period")
	if period == "" {
		period = "1d"
	}
	window, ok := SummaryPeriods[period]
	if !ok {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Unknown period: %s", period))
	}

	messages, err := ctx.Guild.FetchMessages(ctx.Context(), ctx.ChannelID, chatStatsLimit, c.clock.Now().Add(-window))
	if err != nil {
		return nil, platformError(err)
	}
	st := ComputeChatStats(messages)
	if st.Messages == 0 {
		return NewResponse(fmt.Sprintf("📭 No messages in %s.", summaryLabels[period])), nil
	}

	var authors strings.Builder
	for i, a := range st.Authors {
		fmt.Fprintf(&authors, "**%d.** <@%s>: %d\n", i+1, a.Key, a.N)
	}
	wordList := make([]string, 0, len(st.Words))
	for _, w := range st.Words {
		wordList = append(wordList, fmt.Sprintf("`%s` (%d)", w.Key, w.N))
	}
	if len(wordList) == 0 {
		wordList = append(wordList, "None")
	}

	embed := &discordgo.MessageEmbed{
		Title: "📊 Chat activity in " + summaryLabels[period],
		Color: colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💬 Messages", Value: fmt.Sprintf("%d", st.Messages), Inline: true},
			{Name: "⏰ Peak hour (UTC)", Value: fmt.Sprintf("%02d:00 (%d)", st.PeakHour, st.PeakCount), Inline: true},
			{Name: "📎 Attachments", Value: fmt.Sprintf("%d", st.Attachments), Inline: true},
			{Name: "🔗 Links", Value: fmt.Sprintf("%d", st.Links), Inline: true},
			{Name: "🏆 Most active", Value: authors.String()},
			{Name: "🔤 Popular words", Value: strings.Join(wordList, ", ")},
		},
		Timestamp: timestamp(c.clock),
	}
	if m := st.TopMessage; m != nil {
		link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", ctx.GuildID, ctx.ChannelID, m.ID)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "⭐ Most reacted",
			Value: fmt.Sprintf("[%d reactions](%s) by <@%s>", m.Reactions, link, m.AuthorID),
		})
	}
	if len(messages) >= chatStatsLimit {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Only the latest %d messages were counted", chatStatsLimit)}
	}
	return NewEmbedResponse(embed), nil
}
