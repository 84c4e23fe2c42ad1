package chunker

import "strings"

// tokensPerWord approximates subword tokens per whitespace-separated word
// in English text.
const tokensPerWord = 1.33

// EstimateTokens gives a rough token count from the word count. Any
// non-empty text counts as at least one token.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return max(int(float64(words)*tokensPerWord), 1)
}
