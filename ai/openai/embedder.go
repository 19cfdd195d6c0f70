package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docseek/ai"
	"github.com/sony/gobreaker/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
// It wraps ai.ErrUnavailable.
var ErrCircuitOpen = fmt.Errorf("openai: circuit open: %w", ai.ErrUnavailable)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Calls pass through a rate limiter and a circuit breaker before reaching
// the langchaingo client.
type Embedder struct {
	embedder  embeddings.Embedder
	dimension int
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[][]float32]
	logger    *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return newEmbedderWith(embedder, config), nil
}

// newEmbedderWith wraps an existing langchaingo embedder. Tests use it to
// substitute the HTTP client.
func newEmbedderWith(embedder embeddings.Embedder, config *ai.Config) *Embedder {
	logger := slog.Default().With("component", "openai-embedder")

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	settings := gobreaker.Settings{
		Name:        "embed",
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a service failure. A timeout is.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Embedder{
		embedder:  embedder,
		dimension: config.EmbeddingDimension,
		limiter:   rate.NewLimiter(limit, burst),
		breaker:   gobreaker.NewCircuitBreaker[[][]float32](settings),
		logger:    logger,
	}
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Dimension returns the configured vector length.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.call(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("openai: embedder returned no vectors")
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.call(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("openai: embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vectors, err := e.breaker.Execute(func() ([][]float32, error) {
		return e.embedder.EmbedDocuments(ctx, texts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return vectors, err
}
