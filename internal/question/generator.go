// Package question produces the hourly debate prompt. The theme rotates
// deterministically with the absolute hour index, so restarts never change
// which theme an hour gets; the text either comes from OpenAI or from a
// static per-theme table when no key is configured or the call fails.
package question

import (
	"context"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// MaxLen is the hard cap on generated question length.
const MaxLen = 120

const systemPrompt = "You are AgorHour's Question Master. ONE concise debate question.\n" +
	"- <=120 chars, plain English, neutral→provocative, safe-for-work.\n" +
	"- Rotate themes: life, love, food, work, ethics, society, culture, politics, tech, future.\n" +
	"- Output only the question."

// Themes, in rotation order. The hour index modulo the list length picks one.
var Themes = []string{
	"life", "love", "food", "work", "ethics",
	"society", "culture", "politics", "tech", "future",
}

var stockQuestions = map[string]string{
	"life":     "Is happiness more comfort or challenge?",
	"love":     "Can long-distance love really last?",
	"food":     "Is fast food killing tradition or saving time?",
	"work":     "Should employers track digital productivity?",
	"ethics":   "Is lying ever the right choice?",
	"society":  "Does anonymity improve debate?",
	"culture":  "Do memes count as modern art?",
	"politics": "Do term limits make democracy stronger?",
	"tech":     "Is AI more tool or threat?",
	"future":   "Will humans settle Mars in your lifetime?",
}

const sentinelQuestion = "Is disagreement a sign of progress?"

// ThemeFor returns the theme for the hour containing t. Deterministic in the
// absolute hour index, independent of timezone and process lifetime.
func ThemeFor(t time.Time) string {
	return Themes[int(t.UTC().Unix()/3600)%len(Themes)]
}

// Generator produces hourly question text.
type Generator struct {
	client  *openai.Client // nil means static fallback only
	model   string
	timeout time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithClient supplies a preconfigured OpenAI client, used by tests to point
// at a stub server.
func WithClient(c *openai.Client) Option {
	return func(g *Generator) { g.client = c }
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// New builds a Generator. An empty apiKey disables the OpenAI path entirely.
func New(apiKey, model string, opts ...Option) *Generator {
	g := &Generator{model: model, timeout: 8 * time.Second}
	if g.model == "" {
		g.model = openai.GPT4oMini
	}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the question text for the hour containing now, at most
// MaxLen characters. It never fails: any problem with the external call is
// logged and answered from the stock table instead.
func (g *Generator) Generate(ctx context.Context, now time.Time) string {
	theme := ThemeFor(now)
	if g.client == nil {
		return Fallback(theme)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.7,
		MaxTokens:   60,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Generate a question <120 chars. Theme: " + theme + ". Recent headline: N/A."},
		},
	})
	if err != nil {
		log.Printf("question generation failed, using fallback: %v", err)
		return Fallback(theme)
	}
	if len(resp.Choices) == 0 {
		log.Println("question generation returned no choices, using fallback")
		return Fallback(theme)
	}

	q := strings.TrimSpace(resp.Choices[0].Message.Content)
	q = strings.Trim(q, `"`)
	if q == "" {
		return Fallback(theme)
	}
	return Truncate(q)
}

// Fallback returns the static question for a theme, or the sentinel when the
// theme is unknown.
func Fallback(theme string) string {
	if q, ok := stockQuestions[theme]; ok {
		return q
	}
	return sentinelQuestion
}

// Truncate caps s at MaxLen runes.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxLen {
		return s
	}
	return string(r[:MaxLen])
}
