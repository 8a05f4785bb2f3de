package generate

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const baselineSystemPrompt = `You write the short teaser text of a Hebrew news page's social-media post.
The user message has the form "question: <article title> context: <article body>".
Reply with the post text only: one short Hebrew sentence of at most 20 words that makes readers
want to open the article without revealing its key fact. No quotes, hashtags or explanations.`

// AnthropicGenerator is the untuned baseline backed by the Messages API.
type AnthropicGenerator struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates a generator. An empty apiKey falls back to
// the ANTHROPIC_API_KEY environment variable.
func NewAnthropicGenerator(apiKey, model string, maxTokens int, opts ...option.RequestOption) *AnthropicGenerator {
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	if maxTokens <= 0 {
		maxTokens = 100
	}
	return &AnthropicGenerator{
		client:    sdk.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (g *AnthropicGenerator) Name() string { return "anthropic" }

func (g *AnthropicGenerator) Generate(ctx context.Context, input string) (string, error) {
	msg, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		System:    []sdk.TextBlockParam{{Text: baselineSystemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(input))},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
