// Package insights produces a narrative financial report from the ledger
// using a Gemini model.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"bistro/internal/core"

	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"
	NoAnalysis   = "No analysis generated."
)

var (
	ErrMissingAPIKey  = errors.New("API key is missing, configure GEMINI_API_KEY")
	ErrAnalysisFailed = errors.New("failed to generate financial analysis")
)

// Analyzer turns a transaction list into a Markdown report.
type Analyzer interface {
	Analyze(ctx context.Context, txs []core.Transaction) (string, error)
}

// generator is the model call, split out so tests can stub it.
type generator interface {
	generate(ctx context.Context, model, prompt string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
}

func (g genaiGenerator) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GeminiAnalyzer calls the Gemini API. The client is created on first use so
// a process without a key can still start.
type GeminiAnalyzer struct {
	apiKey string
	model  string

	mu  sync.Mutex
	gen generator
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

func NewGeminiAnalyzer(apiKey, model string) *GeminiAnalyzer {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiAnalyzer{apiKey: apiKey, model: model}
}

func (a *GeminiAnalyzer) loadGenerator(ctx context.Context) (generator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != nil {
		return a.gen, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	a.gen = genaiGenerator{client: client}
	return a.gen, nil
}

// Analyze never touches ledger state; every failure comes back as
// ErrMissingAPIKey or wraps ErrAnalysisFailed.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, txs []core.Transaction) (string, error) {
	if a.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	prompt, err := BuildPrompt(txs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	gen, err := a.loadGenerator(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Gemini client unavailable", "error", err)
		return "", fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	text, err := gen.generate(ctx, a.model, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "Gemini analysis error", "model", a.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if text == "" {
		return NoAnalysis, nil
	}
	slog.InfoContext(ctx, "Financial analysis generated",
		"model", a.model, "transactions", len(txs), "chars", len(text))
	return text, nil
}
