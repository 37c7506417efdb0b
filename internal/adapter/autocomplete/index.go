package autocomplete

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"semanticportal/internal/adapter/analyzer"
	"semanticportal/internal/domain"
)

// DefaultThreshold is the largest score still treated as a match.
const DefaultThreshold = 0.4

var tokenizer = analyzer.NewTokenizer(2)

// Index is an immutable snapshot of chunk previews prepared for fuzzy search.
type Index struct {
	entries   []entry
	threshold float64
}

type entry struct {
	ordinal int
	preview string
	norm    string
	tokens  []string
}

// Build creates an index over the previews of docs, keeping their order.
func Build(docs []domain.StoredDocument, threshold float64) *Index {
	idx := &Index{
		entries:   make([]entry, 0, len(docs)),
		threshold: threshold,
	}
	for i, d := range docs {
		preview := d.Preview()
		idx.entries = append(idx.entries, entry{
			ordinal: i,
			preview: preview,
			norm:    analyzer.Normalize(preview),
			tokens:  unique(tokenizer.Tokenize(preview)),
		})
	}
	return idx
}

// Len returns the number of previews in the index.
func (ix *Index) Len() int {
	return len(ix.entries)
}

type match struct {
	ordinal int
	score   float64
	preview string
}

// Search returns at most limit previews whose score is within the threshold,
// best first. Scores run from 0 (exact) to 1 (no resemblance).
func (ix *Index) Search(query string, limit int) []string {
	results := []string{}
	if limit <= 0 {
		return results
	}

	qNorm := analyzer.Normalize(query)
	if qNorm == "" {
		return results
	}
	qTokens := tokenizer.Tokenize(query)
	if len(qTokens) == 0 {
		// Short or common words still match as substrings and by edit distance.
		qTokens = analyzer.Words(query)
	}

	var matches []match
	for _, e := range ix.entries {
		s := score(qNorm, qTokens, e)
		if s <= ix.threshold {
			matches = append(matches, match{ordinal: e.ordinal, score: s, preview: e.preview})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		return matches[i].ordinal < matches[j].ordinal
	})

	seen := make(map[string]struct{}, limit)
	for _, m := range matches {
		if _, dup := seen[m.preview]; dup {
			continue
		}
		seen[m.preview] = struct{}{}
		results = append(results, m.preview)
		if len(results) == limit {
			break
		}
	}
	return results
}

func score(qNorm string, qTokens []string, e entry) float64 {
	if strings.Contains(e.norm, qNorm) {
		return 0
	}
	if len(e.tokens) == 0 {
		return 1
	}

	total := 0.0
	for _, qt := range qTokens {
		total += tokenDistance(qt, e.tokens)
	}
	return total / float64(len(qTokens))
}

// tokenDistance is the edit distance from qt to the closest preview token, or
// to that token's prefix of the same length, relative to the length of qt.
func tokenDistance(qt string, tokens []string) float64 {
	q := []rune(qt)
	best := 1.0
	for _, pt := range tokens {
		if strings.Contains(pt, qt) {
			return 0
		}
		d := levenshtein.ComputeDistance(qt, pt)
		if p := []rune(pt); len(p) > len(q) {
			if pd := levenshtein.ComputeDistance(qt, string(p[:len(q)])); pd < d {
				d = pd
			}
		}
		if s := float64(d) / float64(len(q)); s < best {
			best = s
		}
	}
	return best
}

func unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
