package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docinsight/internal/insight"
)

// BestSentence splits text around the sentence sharing the most
// vocabulary terms with query. match is empty when no sentence shares any.
// before+match+after always reassembles text.
func BestSentence(text, query string) (before, match, after string) {
	terms := make(map[string]struct{})
	for _, tok := range insight.Tokenize(query) {
		terms[tok] = struct{}{}
	}
	if len(terms) == 0 {
		return text, "", ""
	}

	bestStart, bestEnd, bestHits := 0, 0, 0
	for _, span := range sentenceSpans(text) {
		hits := 0
		for _, tok := range insight.Tokenize(text[span[0]:span[1]]) {
			if _, ok := terms[tok]; ok {
				hits++
			}
		}
		if hits > bestHits {
			bestStart, bestEnd, bestHits = span[0], span[1], hits
		}
	}
	if bestHits == 0 {
		return text, "", ""
	}
	return text[:bestStart], text[bestStart:bestEnd], text[bestEnd:]
}

// sentenceSpans returns byte ranges of sentences. A sentence ends after
// terminal punctuation followed by whitespace, or at a newline.
func sentenceSpans(text string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range text {
		if start < 0 {
			if unicode.IsSpace(r) {
				continue
			}
			start = i
		}
		switch {
		case r == '\n':
			spans = append(spans, [2]int{start, i})
			start = -1
		case strings.ContainsRune(".!?", r):
			next := i + utf8.RuneLen(r)
			if next >= len(text) || isSpaceAt(text, next) {
				spans = append(spans, [2]int{start, next})
				start = -1
			}
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}

func isSpaceAt(text string, i int) bool {
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}
