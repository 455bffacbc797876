package packer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compaqt/compaqt/internal/tokens"
)

// newPacker uses the degraded mapper (whitespace estimator), which is
// deterministic and needs no tokenizer download.
func newPacker() *Packer {
	return New(tokens.NewMapper(nil))
}

func codeFile(name string, lines int) File {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		b.WriteString("int value = 0 ; // padding comment\n")
	}
	return File{Name: name, Content: b.String()}
}

func TestPack_AllFit(t *testing.T) {
	p := newPacker()
	files := []File{codeFile("a.c", 2), codeFile("b.c", 3)}

	res := p.Pack(context.Background(), files, 10000)
	assert.Len(t, res.Included, 2)
	assert.Empty(t, res.Excluded)
	assert.Equal(t, 2, res.Stats.FilesIncluded)
	assert.Contains(t, res.PackedText, "# === a.c (")
	assert.Contains(t, res.PackedText, "# === b.c (")
}

// TestPack_BudgetRespected verifies included token cost never exceeds the
// budget and overflowing files carry a reason.
func TestPack_BudgetRespected(t *testing.T) {
	p := newPacker()
	files := []File{codeFile("big.c", 80), codeFile("small.c", 2)}

	// Budget sized so only the small file fits.
	small := p.mapper.Count("int value=0;\nint value=0;\n") + headerOverhead
	res := p.Pack(context.Background(), files, small)

	require.Len(t, res.Included, 1)
	assert.Equal(t, "small.c", res.Included[0].Name)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "big.c", res.Excluded[0].Name)
	assert.Equal(t, "exceeded token budget", res.Excluded[0].Reason)
}

// TestPack_LargestFirst verifies greedy ordering by minified token count.
func TestPack_LargestFirst(t *testing.T) {
	p := newPacker()
	files := []File{codeFile("small.c", 1), codeFile("large.c", 10)}

	res := p.Pack(context.Background(), files, 100000)
	require.Len(t, res.Included, 2)
	assert.Equal(t, "large.c", res.Included[0].Name)
	assert.Less(t, strings.Index(res.PackedText, "large.c"), strings.Index(res.PackedText, "small.c"))
}

// TestPack_MinifiesContent verifies comments are gone from the packed text
// and per-file savings are positive.
func TestPack_MinifiesContent(t *testing.T) {
	p := newPacker()
	res := p.Pack(context.Background(), []File{codeFile("a.c", 5)}, 100000)

	assert.NotContains(t, res.PackedText, "padding comment")
	require.Len(t, res.Included, 1)
	assert.Positive(t, res.Included[0].Savings)
}

func TestPack_Empty(t *testing.T) {
	p := newPacker()
	res := p.Pack(context.Background(), nil, 1000)

	assert.Empty(t, res.PackedText)
	assert.Zero(t, res.Stats.FilesIncluded)
	assert.Zero(t, res.Stats.SavingsPercent, "zero included originals must not divide by zero")
}
