package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stocksense/pantry/internal/common"
	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
)

// Classifier implements service.Classifier on top of a language model
// provider, with caching, rate limiting, and retries.
type Classifier struct {
	client      Client
	cache       *resultCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// Config holds configuration for the classifier and its provider.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewClassifier creates a new language-model-backed classifier.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai", "openai-compatible":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		client:      client,
		cache:       newResultCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// Classify maps one raw receipt name onto a canonical product name and
// category. Errors are wrapped in common.ErrClassificationFailed so
// callers can fall back to {rawName, Unknown} without losing the item.
func (c *Classifier) Classify(ctx context.Context, rawName string) (service.ClassifyResult, error) {
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return service.ClassifyResult{}, fmt.Errorf("%w: empty product name", common.ErrClassificationFailed)
	}

	if result, found := c.cache.get(rawName); found {
		c.logger.Debug("classification cache hit", "raw_name", rawName)
		return result, nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return service.ClassifyResult{}, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}

	prompt := buildClassifyPrompt(rawName)

	var result service.ClassifyResult
	err := common.WithRetry(ctx, func() error {
		content, err := c.client.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		parsed, err := parseLabeledResponse(rawName, content)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	}, c.retryOpts)
	if err != nil {
		return service.ClassifyResult{}, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}

	c.cache.set(rawName, result)
	c.logger.Debug("classified product",
		"raw_name", rawName,
		"clean_name", result.CleanName,
		"category", result.Category,
		"confidence", result.Confidence)
	return result, nil
}

// Close releases the classifier's background goroutines.
func (c *Classifier) Close() {
	c.cache.Close()
	c.rateLimiter.Close()
}

// buildClassifyPrompt renders the labeled-line prompt for one raw name.
func buildClassifyPrompt(rawName string) string {
	var sb strings.Builder
	sb.WriteString("Classify this grocery receipt line item.\n\n")
	sb.WriteString(fmt.Sprintf("Item: %q\n\n", rawName))
	sb.WriteString("Categories (pick exactly one):\n")
	for _, category := range model.Categories() {
		sb.WriteString(fmt.Sprintf("- %s\n", category))
	}
	sb.WriteString("\nRespond with exactly these three lines:\n")
	sb.WriteString("CATEGORY: <one category from the list>\n")
	sb.WriteString("CLEAN_NAME: <short canonical product name, no brand codes or sizes>\n")
	sb.WriteString("CONFIDENCE: <0.0 to 1.0>\n")
	return sb.String()
}
