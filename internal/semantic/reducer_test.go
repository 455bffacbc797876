package semantic

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder is a deterministic bag-of-words embedder: each word adds
// weight to a hashed dimension, and the vector is normalized. Removing a
// repeated or short word perturbs the vector less than removing a distinct
// long one, which is enough signal for reduction tests.
type hashEmbedder struct {
	calls int
	fail  bool
}

const hashDim = 64

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h.calls++
	if h.fail {
		return nil, errors.New("model not loaded")
	}
	vec := make([]float32, hashDim)
	for _, span := range WordSpans(text) {
		f := fnv.New32a()
		f.Write([]byte(span.Word))
		vec[f.Sum32()%hashDim] += float32(len(span.Word))
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (h *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// weightedEmbedder scores fixed vocabulary words so the least informative
// word is known in advance.
type weightedEmbedder struct {
	weights map[string]float32
	order   []string
}

func (w *weightedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(w.order))
	for _, span := range WordSpans(text) {
		for i, word := range w.order {
			if span.Word == word {
				vec[i] = w.weights[word]
			}
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (w *weightedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, _ := w.Embed(ctx, t)
		out = append(out, v)
	}
	return out, nil
}

// TestReduce_DropsFillerFirst verifies the lowest-weight word is removed
// first: the filler contributes almost nothing to the embedding, so its
// removal keeps similarity highest.
func TestReduce_DropsFillerFirst(t *testing.T) {
	emb := &weightedEmbedder{
		weights: map[string]float32{"alpha": 10, "beta": 10, "gamma": 10, "basically": 0.1},
		order:   []string{"alpha", "beta", "gamma", "basically"},
	}
	r := NewReducer(emb)

	got, ok := r.removeLeastInformative(context.Background(), "alpha basically beta gamma", 2)
	require.True(t, ok)
	assert.Equal(t, "alpha beta gamma", got)
}

// TestReduce_MinWordsFloor verifies sentences never drop below minWords.
func TestReduce_MinWordsFloor(t *testing.T) {
	r := NewReducer(&hashEmbedder{})
	sentence := "one two three four five"

	// Aggressive ratio, but the 5-word floor stops reduction immediately.
	out := r.Reduce(context.Background(), sentence, 0.1, 5)
	assert.Equal(t, sentence, out)

	// minWords 3 allows removals down to 3 words but not past it.
	out = r.Reduce(context.Background(), sentence, 0.1, 3)
	assert.GreaterOrEqual(t, len(WordSpans(out)), 3)
	assert.Less(t, len(out), len(sentence))
}

// TestReduce_RatioConvergence verifies reduction halts at the target length
// fraction unless floored by minWords.
func TestReduce_RatioConvergence(t *testing.T) {
	r := NewReducer(&hashEmbedder{})
	sentence := "the quick brown fox jumps over the lazy dog and runs far away today"

	out := r.Reduce(context.Background(), sentence, 0.7, 2)
	frac := float64(len(out)) / float64(len(sentence))
	assert.LessOrEqual(t, frac, 0.7)
	assert.GreaterOrEqual(t, len(WordSpans(out)), 2)
}

// TestReduce_DelimitersPreserved verifies sentence delimiters survive
// reduction in original order.
func TestReduce_DelimitersPreserved(t *testing.T) {
	r := NewReducer(&hashEmbedder{})
	out := r.Reduce(context.Background(), "Keep this short. And this too!\nFinal line", 0.99, 1)

	segs := SplitSentences(out)
	require.Len(t, segs, 3)
	assert.Contains(t, segs[0].Delimiter, ". ")
	assert.Contains(t, segs[1].Delimiter, "!")
}

// TestReduce_PassThrough verifies degraded modes return input unchanged.
func TestReduce_PassThrough(t *testing.T) {
	text := "Nothing to see here. Move along now please."

	// No embedder at all.
	assert.Equal(t, text, NewReducer(nil).Reduce(context.Background(), text, 0.5, 2))

	// Embedder that always fails.
	assert.Equal(t, text, NewReducer(&hashEmbedder{fail: true}).Reduce(context.Background(), text, 0.5, 2))

	// Empty input.
	assert.Equal(t, "", NewReducer(&hashEmbedder{}).Reduce(context.Background(), "", 0.5, 2))
}

// TestReduce_ShortSentenceUntouched verifies sentences already below
// minWords are returned unchanged.
func TestReduce_ShortSentenceUntouched(t *testing.T) {
	r := NewReducer(&hashEmbedder{})
	assert.Equal(t, "too short", r.Reduce(context.Background(), "too short", 0.1, 5))
}

// TestReduce_IterationBound verifies reduction performs at most
// wordCount-minWords removal rounds per sentence.
func TestReduce_IterationBound(t *testing.T) {
	emb := &hashEmbedder{}
	r := NewReducer(emb)
	sentence := "a b c d e f g h"
	words := len(WordSpans(sentence))
	minWords := 2

	r.Reduce(context.Background(), sentence, 0.01, minWords)

	// Each round costs 1 original embed + at most `words` candidate embeds.
	maxRounds := words - minWords + 1
	assert.LessOrEqual(t, emb.calls, maxRounds*(words+1))
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 1.0, dot([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, dot([]float32{1, 0}, []float32{0, 1}), 1e-9)
	// Mismatched lengths use the shorter prefix.
	assert.InDelta(t, 0.5, dot([]float32{0.5}, []float32{1, 1}), 1e-9)
}
