// Package tokenizer turns the raw text of one document into its set of
// index words. Text is lower-cased, whitespace is collapsed, punctuation is
// stripped, and runs of ASCII letters are extracted and filtered against a
// stop-word set.
package tokenizer

import (
	"regexp"
	"sort"
	"strings"
)

// spaceClass mirrors Unicode str.isspace(): ASCII whitespace, the C0
// separators, NEL, and every Zs/Zl/Zp code point.
const spaceClass = `\t\n\v\f\r\x{1c}-\x{1f}\x{85}\p{Zs}\x{2028}\x{2029}`

var (
	multiSpace = regexp.MustCompile(`[` + spaceClass + `]{2,}`)
	newlines   = regexp.MustCompile(`\n+`)
	// Word characters are letters, numbers, and underscore.
	nonWord = regexp.MustCompile(`[^\p{L}\p{N}_` + spaceClass + `]`)
	word    = regexp.MustCompile(`[a-z]+`)
)

// Normalize applies the text clean-up that precedes word extraction. The
// order of the steps is part of the output contract.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = multiSpace.ReplaceAllLiteralString(text, " ")
	text = newlines.ReplaceAllLiteralString(text, " ")
	return nonWord.ReplaceAllLiteralString(text, "")
}

// Tokenize returns the distinct words of text that are not stop words, in
// ascending order. Digits and underscores survive Normalize but are never
// part of a word, so purely numeric tokens are dropped.
func Tokenize(text string, stop StopWords) []string {
	matches := word.FindAllString(Normalize(text), -1)
	set := make(map[string]struct{}, len(matches)/2)
	for _, m := range matches {
		set[m] = struct{}{}
	}
	words := make([]string, 0, len(set))
	for w := range set {
		if stop.Contains(w) {
			continue
		}
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
