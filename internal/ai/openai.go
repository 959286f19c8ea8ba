package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/pkg/config"
)

const defaultRequestTimeout = 60 * time.Second

// OpenAIGateway talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIGateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIGateway builds the gateway from configuration. A custom base
// URL lets deployments point at any compatible provider.
func NewOpenAIGateway(cfg config.AIConfig, logger *zap.Logger) *OpenAIGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &OpenAIGateway{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}
}

// ClassifyItem analyses an item from its photos and description.
func (g *OpenAIGateway) ClassifyItem(ctx context.Context, item ItemContext) (*Classification, error) {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: classifyUserPrompt(item)},
	}
	for _, url := range item.PhotoURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url},
		})
	}
	raw, err := g.complete(ctx, classifySystemPrompt, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
	if err != nil {
		return nil, err
	}

	var result Classification
	if err := decodeJSON(raw, &result); err != nil {
		return nil, err
	}
	if result.UsageScore < 0 {
		result.UsageScore = 0
	}
	if result.UsageScore > 100 {
		result.UsageScore = 100
	}
	result.Recommendation = normalizeRecommendation(result.Recommendation)
	return &result, nil
}

// SuggestPrice returns a resale price band for an item.
func (g *OpenAIGateway) SuggestPrice(ctx context.Context, item ItemContext) (*PriceSuggestion, error) {
	raw, err := g.complete(ctx, priceSystemPrompt, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: priceUserPrompt(item),
	})
	if err != nil {
		return nil, err
	}

	var result PriceSuggestion
	if err := decodeJSON(raw, &result); err != nil {
		return nil, err
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}

// ComposeListing writes marketplace copy for one language.
func (g *OpenAIGateway) ComposeListing(ctx context.Context, req ListingRequest) (*ListingCopy, error) {
	raw, err := g.complete(ctx, listingSystemPrompt, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: listingUserPrompt(req),
	})
	if err != nil {
		return nil, err
	}

	var result ListingCopy
	if err := decodeJSON(raw, &result); err != nil {
		return nil, err
	}
	if result.Title == "" {
		result.Title = req.Title
	}
	return &result, nil
}

// BuildMovingPlan produces a week-by-week declutter plan.
func (g *OpenAIGateway) BuildMovingPlan(ctx context.Context, mc MovingContext) ([]PlanWeek, error) {
	raw, err := g.complete(ctx, movingPlanSystemPrompt, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: movingPlanUserPrompt(mc),
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Weeks []PlanWeek `json:"weeks"`
	}
	if err := decodeJSON(raw, &result); err != nil {
		return nil, err
	}
	if len(result.Weeks) == 0 {
		return nil, fmt.Errorf("moving plan response contained no weeks")
	}
	return result.Weeks, nil
}

// complete runs one chat completion under the configured timeout. Queue
// workers pass the server-lifetime context, so the deadline here is what
// keeps a stalled upstream from pinning a worker.
func (g *OpenAIGateway) complete(ctx context.Context, system string, user openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			user,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	latency := time.Since(start)
	if err != nil {
		g.logger.Warn("chat completion failed",
			zap.String("model", g.model),
			zap.Duration("latency", latency),
			zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	g.logger.Debug("chat completion ok",
		zap.String("model", g.model),
		zap.Duration("latency", latency))
	return resp.Choices[0].Message.Content, nil
}

// decodeJSON parses a model response, tolerating code fences around the
// JSON body. Anything unparseable is an error the caller converts into a
// failed analysis rather than a crash.
func decodeJSON(raw string, out interface{}) error {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return fmt.Errorf("decode AI response: %w", err)
	}
	return nil
}

func normalizeRecommendation(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "keep":
		return "keep"
	case "sell":
		return "sell"
	case "donate":
		return "donate"
	case "dispose", "discard", "trash":
		return "dispose"
	default:
		return "keep"
	}
}
