// Package tokens wraps an opaque subword tokenizer to report exact token
// counts and per-token byte offsets.
//
// DESIGN: The tokenizer is consumed through the Codec capability interface
// so the real tiktoken backend can be swapped for a stub in tests. The
// backend handle is shared process-wide and initialized lazily on first use;
// if initialization fails the Mapper degrades to a deterministic estimator
// instead of failing requests.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Codec is the subword tokenizer capability.
//
// Invariant assumed (not verified): concatenating DecodeSingle over
// Encode(text) in order reproduces the original bytes of text.
type Codec interface {
	// Encode returns the ordered token ids for text.
	Encode(text string) ([]int, error)

	// DecodeSingle returns the bytes a single token id decodes to.
	DecodeSingle(id int) ([]byte, error)
}

// tiktokenCodec adapts pkoukk/tiktoken-go to the Codec interface.
type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCodec) Encode(text string) ([]int, error) {
	return c.enc.Encode(text, nil, nil), nil
}

func (c *tiktokenCodec) DecodeSingle(id int) ([]byte, error) {
	return []byte(c.enc.Decode([]int{id})), nil
}

// lazyCodec defers backend initialization to the first call.
// Loading the BPE ranks can hit the network, so it must not run at
// construction time and must run at most once per process.
type lazyCodec struct {
	encoding string
	once     sync.Once
	codec    Codec
	err      error
}

// NewLazyTiktoken returns a Codec backed by the named tiktoken encoding,
// initialized on first use and shared by all callers.
func NewLazyTiktoken(encoding string) Codec {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &lazyCodec{encoding: encoding}
}

func (l *lazyCodec) init() {
	enc, err := tiktoken.GetEncoding(l.encoding)
	if err != nil {
		l.err = err
		return
	}
	l.codec = &tiktokenCodec{enc: enc}
}

func (l *lazyCodec) Encode(text string) ([]int, error) {
	l.once.Do(l.init)
	if l.err != nil {
		return nil, l.err
	}
	return l.codec.Encode(text)
}

func (l *lazyCodec) DecodeSingle(id int) ([]byte, error) {
	l.once.Do(l.init)
	if l.err != nil {
		return nil, l.err
	}
	return l.codec.DecodeSingle(id)
}
