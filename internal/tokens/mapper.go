package tokens

import "strings"

// Mapper reports token counts and token start offsets for text.
// A nil codec puts the mapper permanently in degraded mode.
type Mapper struct {
	codec Codec
}

// NewMapper creates a Mapper over the given codec. codec may be nil.
func NewMapper(codec Codec) *Mapper {
	return &Mapper{codec: codec}
}

// Available reports whether the real tokenizer backend is usable.
func (m *Mapper) Available() bool {
	if m.codec == nil {
		return false
	}
	_, err := m.codec.Encode("")
	return err == nil
}

// Map returns the token count and the ordered byte offsets at which each
// token starts: the first token starts at 0, each subsequent one at the
// previous start plus the decoded byte length of the previous token.
//
// Degraded mode (codec missing or failing) returns an estimated count and
// nil starts; callers must treat that as advisory.
func (m *Mapper) Map(text string) (int, []int) {
	if text == "" {
		return 0, nil
	}
	if m.codec == nil {
		return Estimate(text), nil
	}

	ids, err := m.codec.Encode(text)
	if err != nil {
		return Estimate(text), nil
	}

	starts := make([]int, len(ids))
	offset := 0
	for i, id := range ids {
		starts[i] = offset
		b, err := m.codec.DecodeSingle(id)
		if err != nil {
			return len(ids), nil
		}
		offset += len(b)
	}
	return len(ids), starts
}

// Count returns the number of tokens in text.
func (m *Mapper) Count(text string) int {
	count, _ := m.Map(text)
	return count
}

// Starts returns the token start offsets, or nil in degraded mode.
func (m *Mapper) Starts(text string) []int {
	_, starts := m.Map(text)
	return starts
}

// Estimate approximates a token count without a tokenizer: split on
// whitespace and charge each word by its byte length. Subword tokenizers
// average roughly 4 bytes per token on English text.
func Estimate(text string) int {
	total := 0
	for _, word := range strings.Fields(text) {
		n := len(word)/4 + 1
		if n < 1 {
			n = 1
		}
		total += n
	}
	return total
}
