// Package embedding provides a batch-capable wrapper over an
// EmbeddingProvider (OpenAI or HuggingFace behind the same interface),
// plus the cosine-similarity primitive used to compare embeddings.
//
// Grounded in the teacher's llm.LlmProvider-shaped "name + capability
// method" contract, generalized from completion to embedding, with
// batch/statistics handling mirroring the executor's own Stats folding
// (wfcontext.Stats).
package embedding

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ravel-run/agentgraph/errs"
)

// EmbeddingProvider is the minimal contract a vendor backend must satisfy.
type EmbeddingProvider interface {
	ProviderName() string
	Embed(ctx context.Context, text string) ([]float64, int, error) // vector, token count, error
	Dimensions() int
}

// Service wraps an EmbeddingProvider with single/batch helpers.
type Service struct {
	provider EmbeddingProvider
}

func New(provider EmbeddingProvider) *Service {
	return &Service{provider: provider}
}

func (s *Service) EmbedText(ctx context.Context, text string) ([]float64, error) {
	v, _, err := s.provider.Embed(ctx, text)
	return v, err
}

func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, _, err := s.provider.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Service) GetDimensions() int {
	return s.provider.Dimensions()
}

// BatchRequest describes a set of independent embedding requests to run
// with bounded concurrency and an optional overall deadline.
type BatchRequest struct {
	Texts          []string
	MaxConcurrency int64
	Timeout        time.Duration
}

// BatchItemResult is the per-request outcome within a BatchResponse.
type BatchItemResult struct {
	Text      string
	Embedding []float64
	Err       error
}

// BatchStats aggregates outcomes across a BatchRequest.
type BatchStats struct {
	Successful      int
	Failed          int
	TotalEmbeddings int
	TotalTokens     int
	AverageDuration time.Duration
	TotalDuration   time.Duration
}

type BatchResponse struct {
	Results []BatchItemResult
	Stats   BatchStats
}

// ProcessBatch runs one Embed call per text, independently, bounded by
// MaxConcurrency permits from a weighted semaphore — the same
// scoped-acquire/defer-release shape the concurrency limiter uses for
// node execution.
func (s *Service) ProcessBatch(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	maxConcurrency := req.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = int64(len(req.Texts))
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	sem := semaphore.NewWeighted(maxConcurrency)

	results := make([]BatchItemResult, len(req.Texts))
	durations := make([]time.Duration, len(req.Texts))
	tokens := make([]int, len(req.Texts))

	var wg sync.WaitGroup
	for i, text := range req.Texts {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = BatchItemResult{Text: text, Err: err}
			continue
		}
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer sem.Release(1)

			started := time.Now()
			vec, n, err := s.provider.Embed(ctx, text)
			durations[i] = time.Since(started)
			tokens[i] = n
			results[i] = BatchItemResult{Text: text, Embedding: vec, Err: err}
		}(i, text)
	}
	wg.Wait()

	var stats BatchStats
	for i, r := range results {
		stats.TotalDuration += durations[i]
		if r.Err != nil {
			stats.Failed++
			continue
		}
		stats.Successful++
		stats.TotalEmbeddings++
		stats.TotalTokens += tokens[i]
	}
	if stats.Successful > 0 {
		stats.AverageDuration = stats.TotalDuration / time.Duration(len(results))
	}

	return BatchResponse{Results: results, Stats: stats}, nil
}

// CosineSimilarity returns 0 for a zero-norm vector and errors on
// dimension mismatch, per the contract this module exposes.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.Validation("cosine_similarity: dimension mismatch (%d vs %d)", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
