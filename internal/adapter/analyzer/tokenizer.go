// Package analyzer turns chunk previews and partial queries into comparable
// word forms for fuzzy autocomplete.
package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"semanticportal/internal/port"
)

var _ port.Tokenizer = (*Tokenizer)(nil)

// Tokenizer folds text to lowercase unaccented words and drops stopwords and
// words shorter than a minimum number of characters.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLen    int
}

func NewTokenizer(minLen int) *Tokenizer {
	if minLen < 1 {
		minLen = 1
	}
	return &Tokenizer{
		stopwords: stopwords,
		minLen:    minLen,
	}
}

func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(Fold(text))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < t.minLen {
			continue
		}
		if _, stop := t.stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// Normalize folds text and joins its words with single spaces, so substring
// checks ignore case, accents and punctuation.
func Normalize(text string) string {
	return strings.Join(splitWords(Fold(text)), " ")
}

// Words returns every folded word of text, stopwords and short words included.
func Words(text string) []string {
	return splitWords(Fold(text))
}

// Fold lowercases s and strips combining marks: "Café" becomes "cafe".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// splitWords breaks text on anything that is not a letter, digit or underscore.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a an and are as at be by for from has he in is it its of on
		that the to was were will with this have had but not you your
		we our they their she her his if or so no can do does did been
		being would could should may might must shall which who whom
		what when where why how all each every both few more most other
		some such than too very just also`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
