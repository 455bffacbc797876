// Package packer fits minified source files into a token budget.
//
// DESIGN: Greedy packing - every file is minified first, then files are
// taken largest-first while they fit under the budget (with a fixed header
// overhead per file). Excluded files are reported with a reason rather than
// silently dropped.
package packer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/compaqt/compaqt/internal/minify"
	"github.com/compaqt/compaqt/internal/tokens"
)

// headerOverhead approximates the tokens consumed by one file's metadata
// header in the packed output.
const headerOverhead = 20

// File is one named source file to pack.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Included describes a file that made it into the packed output.
type Included struct {
	Name           string `json:"name"`
	OriginalTokens int    `json:"original_tokens"`
	PackedTokens   int    `json:"packed_tokens"`
	Savings        int    `json:"savings"`
}

// Excluded describes a file left out of the packed output.
type Excluded struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
	Reason string `json:"reason"`
}

// Stats summarizes a packing run.
type Stats struct {
	OriginalTotalTokens int     `json:"original_total_tokens"`
	PackedTokens        int     `json:"packed_tokens"`
	TokenBudget         int     `json:"token_budget"`
	TokensSaved         int     `json:"tokens_saved"`
	SavingsPercent      float64 `json:"savings_percentage"`
	FilesIncluded       int     `json:"files_included"`
	FilesExcluded       int     `json:"files_excluded"`
}

// Result is the outcome of packing files into a budget.
type Result struct {
	PackedText string     `json:"packed_text"`
	Included   []Included `json:"included_files"`
	Excluded   []Excluded `json:"excluded_files"`
	Stats      Stats      `json:"stats"`
}

// Packer minifies and packs files using the shared token mapper.
type Packer struct {
	mapper *tokens.Mapper
}

// New creates a Packer.
func New(mapper *tokens.Mapper) *Packer {
	return &Packer{mapper: mapper}
}

type minified struct {
	name           string
	content        string
	originalTokens int
	minifiedTokens int
}

// Pack minifies every file and greedily fills the token budget,
// largest minified file first.
func (p *Packer) Pack(_ context.Context, files []File, budget int) Result {
	candidates := make([]minified, 0, len(files))
	for _, f := range files {
		min := minify.Minify(f.Content)
		candidates = append(candidates, minified{
			name:           f.Name,
			content:        min,
			originalTokens: p.mapper.Count(f.Content),
			minifiedTokens: p.mapper.Count(min),
		})
	}

	// Largest first; stable so equal-sized files keep input order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].minifiedTokens > candidates[j].minifiedTokens
	})

	var (
		sections         []string
		included         []Included
		excluded         []Excluded
		currentTokens    int
		originalTotal    int
		includedOriginal int
	)

	for _, c := range candidates {
		originalTotal += c.originalTokens
		cost := c.minifiedTokens + headerOverhead

		if currentTokens+cost > budget {
			excluded = append(excluded, Excluded{
				Name:   c.name,
				Tokens: c.minifiedTokens,
				Reason: "exceeded token budget",
			})
			continue
		}

		header := fmt.Sprintf("# === %s (%d tokens) ===", c.name, c.minifiedTokens)
		sections = append(sections, header+"\n"+c.content+"\n")
		included = append(included, Included{
			Name:           c.name,
			OriginalTokens: c.originalTokens,
			PackedTokens:   c.minifiedTokens,
			Savings:        c.originalTokens - c.minifiedTokens,
		})
		currentTokens += cost
		includedOriginal += c.originalTokens
	}

	packedText := strings.Join(sections, "\n")
	finalTokens := p.mapper.Count(packedText)

	stats := Stats{
		OriginalTotalTokens: originalTotal,
		PackedTokens:        finalTokens,
		TokenBudget:         budget,
		TokensSaved:         includedOriginal - finalTokens,
		FilesIncluded:       len(included),
		FilesExcluded:       len(excluded),
	}
	if includedOriginal > 0 {
		stats.SavingsPercent = round1((1 - float64(finalTokens)/float64(includedOriginal)) * 100)
	}

	return Result{
		PackedText: packedText,
		Included:   included,
		Excluded:   excluded,
		Stats:      stats,
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
