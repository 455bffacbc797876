// Package semantic shrinks natural-language prompts by greedy word
// elimination: per sentence, repeatedly remove the word whose absence least
// changes the sentence embedding.
//
// DESIGN: The embedding model is consumed through the Embedder capability
// interface. When it is unavailable the reducer degrades to a pass-through
// rather than failing the request.
package semantic

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Segment is a sentence with its trailing delimiter, preserved verbatim.
// Concatenating Text+Delimiter over all segments reconstructs the input
// (after CRLF normalization) byte for byte.
type Segment struct {
	Text      string
	Delimiter string
}

// sentencePunct reports whether c ends a sentence when followed by whitespace.
func sentencePunct(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func asciiSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// SplitSentences splits text into (sentence, delimiter) pairs. A delimiter
// is sentence punctuation followed by a whitespace run, or a run of
// newlines, or end of input. CRLF is normalized to LF first.
func SplitSentences(text string) []Segment {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var segments []Segment
	start := 0
	i := 0
	for i < len(text) {
		c := text[i]

		if sentencePunct(c) && i+1 < len(text) && asciiSpace(text[i+1]) {
			j := i + 1
			for j < len(text) && asciiSpace(text[j]) {
				j++
			}
			segments = append(segments, Segment{Text: text[start:i], Delimiter: text[i:j]})
			start, i = j, j
			continue
		}

		if c == '\n' {
			j := i
			for j < len(text) && text[j] == '\n' {
				j++
			}
			segments = append(segments, Segment{Text: text[start:i], Delimiter: text[i:j]})
			start, i = j, j
			continue
		}

		i++
	}

	if start < len(text) {
		segments = append(segments, Segment{Text: text[start:], Delimiter: ""})
	}
	return segments
}

// Join reassembles segments into the original text.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
		b.WriteString(s.Delimiter)
	}
	return b.String()
}

// Span locates one word inside a sentence by byte offsets.
// Spans are only valid for the exact string they were computed from.
type Span struct {
	Word  string
	Start int
	End   int
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// WordSpans returns every word in the sentence with its byte offsets.
func WordSpans(sentence string) []Span {
	idx := wordRe.FindAllStringIndex(sentence, -1)
	spans := make([]Span, 0, len(idx))
	for _, m := range idx {
		spans = append(spans, Span{Word: sentence[m[0]:m[1]], Start: m[0], End: m[1]})
	}
	return spans
}

// RemoveSpan deletes the span's character range from the sentence, closing
// the gap by also deleting one adjacent whitespace character: the one after
// the span when present, otherwise the one before. The trailing-space-first
// order is a fixed contract for reproducibility.
func RemoveSpan(sentence string, start, end int) string {
	if end < len(sentence) {
		r, size := utf8.DecodeRuneInString(sentence[end:])
		if unicode.IsSpace(r) {
			end += size
			return sentence[:start] + sentence[end:]
		}
	}
	if start > 0 {
		r, size := utf8.DecodeLastRuneInString(sentence[:start])
		if unicode.IsSpace(r) {
			start -= size
		}
	}
	return sentence[:start] + sentence[end:]
}
