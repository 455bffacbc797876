// Package engine assembles the compression core: lexical minification for
// code, semantic reduction for prompts, and token accounting for both.
//
// DESIGN: Every operation returns a complete result structure. Provider
// failures surface as degraded fields (estimated counts, empty token-start
// arrays), never as errors - the compression boundary does not leak
// exceptions.
package engine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compaqt/compaqt/internal/minify"
	"github.com/compaqt/compaqt/internal/semantic"
	"github.com/compaqt/compaqt/internal/store"
	"github.com/compaqt/compaqt/internal/tokens"
)

// Separator joins code and prompt for the combined tokenization.
const Separator = "\n\n"

// Report carries before/after token accounting for one text pair.
type Report struct {
	OriginalTokens        int     `json:"original_tokens"`
	CompressedTokens      int     `json:"compressed_tokens"`
	OriginalTokenStarts   []int   `json:"original_token_starts"`
	CompressedTokenStarts []int   `json:"compressed_token_starts"`
	Savings               int     `json:"savings"`
	SavingsPercent        float64 `json:"savings_percentage"`
	BytesSaved            int     `json:"bytes_saved"`
}

// CodeResult is the outcome of minifying source code.
type CodeResult struct {
	MinimizedCode string `json:"minimized_code"`
	Report
}

// PromptResult is the outcome of semantically reducing a prompt.
type PromptResult struct {
	MinimizedPrompt string `json:"minimized_prompt"`
	Report
}

// CombinedResult is the union of both paths plus a combined tokenization of
// code + separator + prompt before and after compression.
type CombinedResult struct {
	Code     *CodeResult   `json:"code,omitempty"`
	Prompt   *PromptResult `json:"prompt,omitempty"`
	Combined Report        `json:"combined"`
}

// Engine composes the minifier, reducer, and token mapper.
type Engine struct {
	mapper  *tokens.Mapper
	reducer *semantic.Reducer
	cache   *store.Cache // may be nil
}

// New creates an Engine. cache may be nil to disable result caching.
func New(mapper *tokens.Mapper, reducer *semantic.Reducer, cache *store.Cache) *Engine {
	return &Engine{mapper: mapper, reducer: reducer, cache: cache}
}

// TokenizerAvailable reports whether exact token accounting is active.
func (e *Engine) TokenizerAvailable() bool { return e.mapper.Available() }

// EmbedderAvailable reports whether semantic reduction is active.
func (e *Engine) EmbedderAvailable() bool { return e.reducer.Available() }

// MinifyCode lexically minifies code and reports token savings.
func (e *Engine) MinifyCode(_ context.Context, code string) CodeResult {
	started := time.Now()
	minimized := minify.Minify(code)

	res := CodeResult{
		MinimizedCode: minimized,
		Report:        e.report(code, minimized),
	}
	log.Debug().
		Int("original_tokens", res.OriginalTokens).
		Int("compressed_tokens", res.CompressedTokens).
		Dur("elapsed", time.Since(started)).
		Msg("code minified")
	return res
}

// CompressPrompt reduces a prompt toward the target length ratio and reports
// token savings. Identical inputs hit the result cache and skip embedding.
func (e *Engine) CompressPrompt(ctx context.Context, prompt string, ratio float64, minWords int) PromptResult {
	started := time.Now()

	key := store.Key("prompt", strconv.FormatFloat(ratio, 'f', -1, 64), strconv.Itoa(minWords), prompt)
	reduced, cached := e.cachedReduction(key)
	if !cached {
		reduced = e.reducer.Reduce(ctx, prompt, ratio, minWords)
		if e.cache != nil {
			e.cache.Set(key, reduced)
		}
	}

	res := PromptResult{
		MinimizedPrompt: reduced,
		Report:          e.report(prompt, reduced),
	}
	log.Debug().
		Bool("cache_hit", cached).
		Int("original_tokens", res.OriginalTokens).
		Int("compressed_tokens", res.CompressedTokens).
		Dur("elapsed", time.Since(started)).
		Msg("prompt compressed")
	return res
}

// CompressCombined runs both paths and adds a combined tokenization.
// Either input may be empty; the separator only joins non-empty parts.
func (e *Engine) CompressCombined(ctx context.Context, code, prompt string, ratio float64, minWords int) CombinedResult {
	var res CombinedResult
	compressedCode, compressedPrompt := code, prompt

	if code != "" {
		c := e.MinifyCode(ctx, code)
		compressedCode = c.MinimizedCode
		res.Code = &c
	}
	if prompt != "" {
		p := e.CompressPrompt(ctx, prompt, ratio, minWords)
		compressedPrompt = p.MinimizedPrompt
		res.Prompt = &p
	}

	res.Combined = e.report(
		joinParts(code, prompt),
		joinParts(compressedCode, compressedPrompt),
	)
	return res
}

// report builds the token accounting for an original/compressed pair.
// SavingsPercent is 0 when the original tokenizes to nothing.
func (e *Engine) report(original, compressed string) Report {
	origCount, origStarts := e.mapper.Map(original)
	compCount, compStarts := e.mapper.Map(compressed)

	r := Report{
		OriginalTokens:        origCount,
		CompressedTokens:      compCount,
		OriginalTokenStarts:   origStarts,
		CompressedTokenStarts: compStarts,
		Savings:               origCount - compCount,
		BytesSaved:            len(original) - len(compressed),
	}
	if origCount > 0 {
		r.SavingsPercent = round1((1 - float64(compCount)/float64(origCount)) * 100)
	}
	return r
}

func (e *Engine) cachedReduction(key string) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	return e.cache.Get(key)
}

func joinParts(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + Separator + b
	}
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
