// Package embeddings provides sentence-embedding backends for the semantic
// reducer.
//
// DESIGN: Two implementations of semantic.Embedder:
//   - FastEmbed: local ONNX models via anush008/fastembed-go. The underlying
//     session is not safe for concurrent use, so calls are serialized by a
//     mutex. The handle is long-lived and shared process-wide.
//   - Hash: a deterministic bag-of-words stand-in for tests and for running
//     without a model download.
//
// All vectors returned are L2-normalized so cosine similarity reduces to a
// dot product.
package embeddings

import (
	"context"
	"fmt"
	"math"
	"sync"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/compaqt/compaqt/internal/semantic"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider string `yaml:"provider"`  // "fastembed", "hash", or "" to disable
	Model    string `yaml:"model"`     // fastembed model name
	CacheDir string `yaml:"cache_dir"` // model download cache
	MaxLen   int    `yaml:"max_len"`   // max input sequence length
}

// modelNames maps friendly model names to fastembed constants.
var modelNames = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// New creates an embedding provider from config. An empty provider returns
// nil, which puts the reducer in pass-through mode.
func New(cfg Config) (semantic.Embedder, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "hash":
		return NewHash(), nil
	case "fastembed":
		return NewFastEmbed(cfg)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
}

// FastEmbed embeds text with a local ONNX model.
type FastEmbed struct {
	model *fastembed.FlagEmbedding
	mu    sync.Mutex
}

// NewFastEmbed loads the configured model, downloading it on first use.
func NewFastEmbed(cfg Config) (*FastEmbed, error) {
	model, ok := modelNames[cfg.Model]
	if !ok {
		if cfg.Model == "" {
			model = fastembed.AllMiniLML6V2
		} else {
			model = fastembed.EmbeddingModel(cfg.Model)
		}
	}

	maxLen := cfg.MaxLen
	if maxLen == 0 {
		maxLen = 512
	}

	showProgress := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            maxLen,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}
	return &FastEmbed{model: flag}, nil
}

// Embed returns the normalized embedding for one text.
func (p *FastEmbed) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns normalized embeddings in input order.
func (p *FastEmbed) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	vecs, err := p.model.Embed(texts, 32)
	if err != nil {
		return nil, fmt.Errorf("embedding batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding batch: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i := range vecs {
		Normalize(vecs[i])
	}
	return vecs, nil
}

// Close releases the ONNX session.
func (p *FastEmbed) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model.Destroy()
}

// Hash is a deterministic bag-of-words embedder. It carries no semantics
// beyond lexical overlap, but it is fast, dependency-free at runtime, and
// stable across runs, which is what tests and degraded deployments need.
type Hash struct {
	dim int
}

// NewHash creates a Hash embedder with a fixed 256-dimension space.
func NewHash() *Hash {
	return &Hash{dim: 256}
}

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	for _, span := range semantic.WordSpans(text) {
		vec[fnv32(span.Word)%uint32(h.dim)] += float32(len(span.Word))
	}
	Normalize(vec)
	return vec, nil
}

func (h *Hash) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Normalize scales vec to unit length in place. Zero vectors stay zero.
func Normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
}

// fnv32 is the 32-bit FNV-1a hash.
func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
