package llm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"flexster/internal/core"
)

type stubClient struct {
	pick *Pick
	err  error
}

func (s *stubClient) PickBest(_ context.Context, _ string, _ []core.CatalogHit) (*Pick, error) {
	return s.pick, s.err
}

func testHits() []core.CatalogHit {
	return []core.CatalogHit{
		{Title: "Rolling in the Deep", Artist: "Adele"},
		{Title: "Rolling in the Deep (Karaoke Version)", Artist: "Karaoke Stars"},
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantErr  bool
	}{
		{name: "none", provider: "none"},
		{name: "empty defaults to none", provider: ""},
		{name: "ollama needs no key", provider: "ollama"},
		{name: "openai without key", provider: "openai", wantErr: true},
		{name: "anthropic without key", provider: "anthropic", wantErr: true},
		{name: "openai with key", provider: "openai", apiKey: "sk-test"},
		{name: "anthropic with key", provider: "anthropic", apiKey: "sk-test"},
		{name: "unknown provider", provider: "bard", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &core.LLMConfig{Provider: tt.provider, APIKey: tt.apiKey}
			_, err := NewProvider(cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProvider_PickBest(t *testing.T) {
	tests := []struct {
		name    string
		client  Client
		hits    []core.CatalogHit
		want    int
		wantErr bool
	}{
		{
			name:   "confident pick",
			client: &stubClient{pick: &Pick{Index: 1, Confidence: 0.9}},
			hits:   testHits(),
			want:   1,
		},
		{
			name:   "low confidence discarded",
			client: &stubClient{pick: &Pick{Index: 1, Confidence: 0.3}},
			hits:   testHits(),
			want:   -1,
		},
		{
			name:   "out of range discarded",
			client: &stubClient{pick: &Pick{Index: 7, Confidence: 0.9}},
			hits:   testHits(),
			want:   -1,
		},
		{
			name:   "no opinion",
			client: &NoOpClient{},
			hits:   testHits(),
			want:   -1,
		},
		{
			name:   "single hit short-circuits",
			client: &stubClient{err: errors.New("must not be called")},
			hits:   testHits()[:1],
			want:   0,
		},
		{
			name:    "backend failure",
			client:  &stubClient{err: errors.New("boom")},
			hits:    testHits(),
			want:    -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Provider{
				config: &core.LLMConfig{Threshold: 0.65},
				logger: zap.NewNop(),
				client: tt.client,
			}

			got, err := p.PickBest(context.Background(), "rolling in the deep", tt.hits)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PickBest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PickBest() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParsePick(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Pick
		wantErr bool
	}{
		{
			name:    "bare JSON",
			content: `{"index": 2, "confidence": 0.8, "reasoning": "studio recording"}`,
			want:    Pick{Index: 2, Confidence: 0.8, Reasoning: "studio recording"},
		},
		{
			name:    "JSON wrapped in prose",
			content: "Sure! Here is my answer:\n{\"index\": 0, \"confidence\": 0.95}\nHope that helps.",
			want:    Pick{Index: 0, Confidence: 0.95},
		},
		{
			name:    "no JSON at all",
			content: "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			content: `{"index": oops}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePick(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parsePick() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePick() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("parsePick() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
