// Package summary generates short AI summaries of portfolio descriptions
// through an OpenAI-compatible chat completion endpoint.
package summary

import (
	"context"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/devfolio/apiserver/config"
	"github.com/microcosm-cc/bluemonday"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const systemPrompt = "You are a professional copywriter for a developer portfolio. " +
	"Summarize the project description you are given in 2-3 sentences of plain, " +
	"professional prose. Do not use markdown, lists or quotes."

const maxCompletionTokens = 200

var stripPolicy = bluemonday.StrictPolicy()

// PlainText strips all markup from body and collapses whitespace runs to a
// single space.
func PlainText(body string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(body))
	return strings.Join(strings.Fields(text), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Generator calls the chat completion API. A Generator without an API key
// is disabled and always returns an empty summary.
type Generator struct {
	client   openai.Client
	enabled  bool
	model    string
	maxChars int
	timeout  time.Duration
	logger   *zap.Logger
}

func NewGenerator(cfg config.AIConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		enabled:  strings.TrimSpace(cfg.APIKey) != "",
		model:    cfg.Model,
		maxChars: cfg.MaxInputChars,
		timeout:  cfg.Timeout,
		logger:   logger.Named("summary"),
	}
	if !g.enabled {
		return g
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	g.client = openai.NewClient(opts...)
	return g
}

// Enabled reports whether an API key is configured.
func (g *Generator) Enabled() bool {
	return g.enabled
}

// Summarize returns a 2-3 sentence summary of an HTML body, or "" when the
// generator is disabled, the body is empty, or the call fails for any reason.
func (g *Generator) Summarize(ctx context.Context, body string) string {
	if !g.enabled {
		return ""
	}
	text := Truncate(PlainText(body), g.maxChars)
	if text == "" {
		return ""
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		MaxCompletionTokens: openai.Int(maxCompletionTokens),
		Temperature:         openai.Float(0.5),
	})
	if err != nil {
		g.logger.Warn("summary request failed", zap.Error(err))
		return ""
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn("summary response had no choices")
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
