// Package llm optionally disambiguates catalog search hits with an LLM.
// With provider "none" every decision falls back to the caller's heuristic.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"flexster/internal/core"
)

// Provider wraps one of the supported LLM backends behind the disambiguation
// contract the metadata resolver consumes.
type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client Client
}

// Client is the backend interface. Answers are the index of the best catalog
// hit with a confidence score; an index of -1 means "no opinion".
type Client interface {
	PickBest(ctx context.Context, query string, hits []core.CatalogHit) (*Pick, error)
}

// Pick is a backend's answer.
type Pick struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client Client
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	case "none", "":
		client = &NoOpClient{}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

// PickBest returns the index of the hit the backend considers the match for
// the query, or -1 when the backend has no confident answer.
func (p *Provider) PickBest(ctx context.Context, query string, hits []core.CatalogHit) (int, error) {
	if len(hits) < 2 {
		return 0, nil
	}

	pick, err := p.client.PickBest(ctx, query, hits)
	if err != nil {
		return -1, err
	}

	if pick.Index < 0 || pick.Index >= len(hits) {
		return -1, nil
	}
	if pick.Confidence < p.config.Threshold {
		p.logger.Debug("discarding low-confidence pick",
			zap.Int("index", pick.Index),
			zap.Float64("confidence", pick.Confidence),
			zap.Float64("threshold", p.config.Threshold))
		return -1, nil
	}

	return pick.Index, nil
}

// NoOpClient answers "no opinion" for every query.
type NoOpClient struct{}

func (n *NoOpClient) PickBest(_ context.Context, _ string, _ []core.CatalogHit) (*Pick, error) {
	return &Pick{Index: -1}, nil
}

// pickPrompt is the system prompt shared by all backends.
const pickPrompt = `You match a free-text music query to catalog search results.

Given the query and a numbered candidate list, answer with JSON in this exact format:
{"index": 0, "confidence": 0.9, "reasoning": "brief explanation"}

Rules:
- index: 0-based position of the best-matching candidate, or -1 if none fits
- confidence: 0.0-1.0 (higher = more certain)
- Prefer original studio recordings over karaoke, tribute, and cover versions`

// formatHits renders the candidate list for the user message.
func formatHits(query string, hits []core.CatalogHit) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %q\n\nCandidates:\n", query)
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. %q by %s", i, h.Title, h.Artist)
		if h.Album != "" {
			fmt.Fprintf(&sb, " (album: %s", h.Album)
			if h.Year != "" {
				fmt.Fprintf(&sb, ", %s", h.Year)
			}
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// parsePick decodes a backend's JSON answer, tolerating surrounding prose by
// extracting the first JSON object.
func parsePick(content string) (*Pick, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in answer: %q", content)
	}

	var pick Pick
	if err := json.Unmarshal([]byte(content[start:end+1]), &pick); err != nil {
		return nil, fmt.Errorf("failed to parse answer: %w", err)
	}
	return &pick, nil
}
