package enrich

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are a patent analyst producing concise, factual briefings for business readers. You do not invent facts about patents you have not been shown."

const DefaultModel = "claude-sonnet-4-20250514"

// callTimeout bounds every generative call. There is no cancellation beyond
// this: once issued, a call runs to completion or to the deadline.
const callTimeout = 30 * time.Second

// Caller is the minimal generative-AI surface the analyzer needs. Tests
// substitute fakes; production uses AnthropicCaller.
type Caller interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCaller{messages: &c.Messages, model: model}, nil
}

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	return NewAnthropicCaller(os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("PATENT_SCOUT_MODEL"))
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   2048,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
