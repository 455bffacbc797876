package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compaqt/compaqt/internal/embeddings"
	"github.com/compaqt/compaqt/internal/semantic"
	"github.com/compaqt/compaqt/internal/store"
	"github.com/compaqt/compaqt/internal/tokens"
)

// countingEmbedder wraps the hash embedder and counts provider calls, so
// tests can assert cache hits skip embedding work.
type countingEmbedder struct {
	inner semantic.Embedder
	calls atomic.Int64
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: embeddings.NewHash()}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	return c.inner.EmbedBatch(ctx, texts)
}

func newEngine(emb semantic.Embedder, cache *store.Cache) *Engine {
	return New(tokens.NewMapper(nil), semantic.NewReducer(emb), cache)
}

func TestMinifyCode_Report(t *testing.T) {
	e := newEngine(nil, nil)

	res := e.MinifyCode(context.Background(), "int main(){ // hello\n  return   0 ; }")
	assert.Equal(t, "int main(){return 0;}", res.MinimizedCode)
	assert.Equal(t, res.OriginalTokens-res.CompressedTokens, res.Savings)
	assert.Positive(t, res.BytesSaved)
}

// TestCompressPrompt_ZeroTokens verifies the degenerate case: empty input
// reports zero savings percentage, not a division by zero.
func TestCompressPrompt_ZeroTokens(t *testing.T) {
	e := newEngine(embeddings.NewHash(), nil)

	res := e.CompressPrompt(context.Background(), "", 0.7, 5)
	assert.Zero(t, res.OriginalTokens)
	assert.Zero(t, res.SavingsPercent)
	assert.Empty(t, res.MinimizedPrompt)
}

func TestCompressPrompt_Reduces(t *testing.T) {
	e := newEngine(embeddings.NewHash(), nil)
	prompt := "The quick brown fox jumps over the lazy dog and keeps on running far away."

	res := e.CompressPrompt(context.Background(), prompt, 0.6, 2)
	assert.Less(t, len(res.MinimizedPrompt), len(prompt))
	assert.Equal(t, res.OriginalTokens-res.CompressedTokens, res.Savings)
}

// TestCompressPrompt_CacheHit verifies an identical request skips the
// embedding provider entirely.
func TestCompressPrompt_CacheHit(t *testing.T) {
	emb := newCountingEmbedder()
	cache := store.NewCache(time.Minute)
	defer cache.Close()
	e := newEngine(emb, cache)
	prompt := "Sentences that are long enough to actually get reduced somewhat here."

	first := e.CompressPrompt(context.Background(), prompt, 0.6, 2)
	callsAfterFirst := emb.calls.Load()
	require.Positive(t, callsAfterFirst)

	second := e.CompressPrompt(context.Background(), prompt, 0.6, 2)
	assert.Equal(t, first.MinimizedPrompt, second.MinimizedPrompt)
	assert.Equal(t, callsAfterFirst, emb.calls.Load(), "cache hit must not call the embedder")

	// Different params miss the cache.
	e.CompressPrompt(context.Background(), prompt, 0.5, 2)
	assert.Greater(t, emb.calls.Load(), callsAfterFirst)
}

// TestCompressPrompt_DegradedEmbedder verifies pass-through output when no
// embedder is configured.
func TestCompressPrompt_DegradedEmbedder(t *testing.T) {
	e := newEngine(nil, nil)
	prompt := "This prompt stays exactly as written. No embedding backend exists."

	res := e.CompressPrompt(context.Background(), prompt, 0.5, 2)
	assert.Equal(t, prompt, res.MinimizedPrompt)
	assert.Zero(t, res.Savings)
	assert.False(t, e.EmbedderAvailable())
}

func TestCompressCombined(t *testing.T) {
	e := newEngine(embeddings.NewHash(), nil)
	code := "int x  =  1 ; // note"
	prompt := "Please explain what this variable is used for in the program overall."

	res := e.CompressCombined(context.Background(), code, prompt, 0.6, 2)
	require.NotNil(t, res.Code)
	require.NotNil(t, res.Prompt)
	assert.Equal(t, "int x=1;", res.Code.MinimizedCode)
	assert.Equal(t, res.Combined.OriginalTokens-res.Combined.CompressedTokens, res.Combined.Savings)
	assert.Positive(t, res.Combined.OriginalTokens)
}

func TestCompressCombined_PartialInputs(t *testing.T) {
	e := newEngine(embeddings.NewHash(), nil)

	codeOnly := e.CompressCombined(context.Background(), "a  +  b", "", 0.7, 5)
	require.NotNil(t, codeOnly.Code)
	assert.Nil(t, codeOnly.Prompt)
	assert.Equal(t, codeOnly.Code.OriginalTokens, codeOnly.Combined.OriginalTokens)

	empty := e.CompressCombined(context.Background(), "", "", 0.7, 5)
	assert.Nil(t, empty.Code)
	assert.Nil(t, empty.Prompt)
	assert.Zero(t, empty.Combined.SavingsPercent)
}

// TestReport_SavingsPercentRounding pins the one-decimal rounding rule.
func TestReport_SavingsPercentRounding(t *testing.T) {
	assert.Equal(t, 33.3, round1((1-2.0/3.0)*100))
	assert.Equal(t, 0.0, round1(0))
	assert.Equal(t, 100.0, round1(100))
}
