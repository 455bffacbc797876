package semantic

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Embedder is the sentence-embedding capability. Vectors are normalized, so
// cosine similarity is a plain dot product. Batch order and length mirror
// the input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Reducer performs greedy embedding-guided word elimination.
type Reducer struct {
	embedder Embedder
}

// NewReducer creates a Reducer over the given embedder. embedder may be nil,
// in which case Reduce is a pass-through.
func NewReducer(embedder Embedder) *Reducer {
	return &Reducer{embedder: embedder}
}

// Available reports whether the embedding backend is usable.
func (r *Reducer) Available() bool {
	return r.embedder != nil
}

// Reduce compresses text sentence by sentence until each sentence's length
// fraction drops to ratio or its word count reaches minWords. Sentence
// delimiters are preserved, so the output reassembles in original order.
func (r *Reducer) Reduce(ctx context.Context, text string, ratio float64, minWords int) string {
	if r.embedder == nil || text == "" {
		return text
	}
	if minWords < 1 {
		minWords = 1
	}

	segments := SplitSentences(text)
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, Segment{
			Text:      r.reduceSentence(ctx, seg.Text, ratio, minWords),
			Delimiter: seg.Delimiter,
		})
	}
	return Join(out)
}

// reduceSentence removes one word per iteration while the retained length
// fraction exceeds ratio and a removable word remains.
func (r *Reducer) reduceSentence(ctx context.Context, sentence string, ratio float64, minWords int) string {
	if len(sentence) == 0 {
		return sentence
	}

	current := sentence
	for float64(len(current))/float64(len(sentence)) > ratio {
		reduced, ok := r.removeLeastInformative(ctx, current, minWords)
		if !ok {
			break
		}
		current = reduced
	}
	return current
}

// removeLeastInformative drops the single word whose removal keeps the
// candidate sentence most similar to the original. Returns false when no
// word can be removed: too few words, no viable candidates, or the embedding
// provider failed (treated as unavailable, not as an error).
func (r *Reducer) removeLeastInformative(ctx context.Context, sentence string, minWords int) (string, bool) {
	spans := WordSpans(sentence)
	if len(spans) <= minWords {
		// At or below the floor: removing another word would drop the
		// sentence under minWords.
		return sentence, false
	}

	original, err := r.embedder.Embed(ctx, sentence)
	if err != nil {
		log.Debug().Err(err).Msg("embedding unavailable, stopping reduction")
		return sentence, false
	}

	candidates := make([]string, 0, len(spans))
	for _, span := range spans {
		candidate := RemoveSpan(sentence, span.Start, span.End)
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		return sentence, false
	}

	embeddings, err := r.embedder.EmbedBatch(ctx, candidates)
	if err != nil || len(embeddings) != len(candidates) {
		log.Debug().Err(err).Msg("batch embedding unavailable, stopping reduction")
		return sentence, false
	}

	// Highest cosine similarity wins; ties keep the first span in
	// left-to-right order.
	best := 0
	bestScore := dot(embeddings[0], original)
	for i := 1; i < len(embeddings); i++ {
		if score := dot(embeddings[i], original); score > bestScore {
			best, bestScore = i, score
		}
	}
	return candidates[best], true
}

// dot is cosine similarity for normalized vectors.
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
