package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/naka-gawa/trustgraph/internal/config"
)

const skillPromptTemplate = `Extract ONLY the technical skills from this CV.
Return as a simple comma-separated list.

CV:
%s

Skills (comma-separated):`

// SkillExtractor turns free CV text into a list of skills.
type SkillExtractor interface {
	ExtractSkills(ctx context.Context, cvText string) []string
}

// OpenAIGateway extracts skills with a chat completion.
type OpenAIGateway struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewOpenAIGateway creates an OpenAIGateway. It returns nil when no API key is
// configured; callers treat a nil extractor as "no skills".
func NewOpenAIGateway(cfg config.OpenAIConfig, logger zerolog.Logger) *OpenAIGateway {
	if cfg.APIKey == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &OpenAIGateway{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// ExtractSkills never fails: any error is logged and yields an empty list.
func (g *OpenAIGateway) ExtractSkills(ctx context.Context, cvText string) []string {
	if g == nil {
		return []string{}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(skillPromptTemplate, cvText)},
		},
		MaxTokens:   g.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("skill extraction request failed")
		return []string{}
	}
	if len(resp.Choices) == 0 {
		g.logger.Error().Msg("skill extraction returned no choices")
		return []string{}
	}
	return SplitSkills(resp.Choices[0].Message.Content)
}

// SplitSkills splits a comma-separated model reply into trimmed, non-empty entries.
func SplitSkills(reply string) []string {
	skills := []string{}
	for _, s := range strings.Split(strings.TrimSpace(reply), ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}
