package insight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docinsight/internal/doctree"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Claim X is supported by evidence Y.", []string{"claim", "supported", "evidence"}},
		{"The CEO's e-mail, dated 2021", []string{"ceo", "mail", "dated", "2021"}},
		{"", nil},
		{"the and of", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("The"))
	assert.True(t, IsStopWord("whereas"))
	assert.False(t, IsStopWord("evidence"))
}

func TestBuildIndex_SmoothedIDF(t *testing.T) {
	ix := BuildIndex([]doctree.SectionRecord{
		{Content: "fraud audit"},
		{Content: "audit report"},
	})
	require.Equal(t, 2, ix.Len())
	require.Equal(t, 3, ix.Terms())

	audit := ix.idf[ix.vocab["audit"]]
	fraud := ix.idf[ix.vocab["fraud"]]
	assert.InDelta(t, 1.0, audit, 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, fraud, 1e-12)
}

func TestBuildIndex_VectorsAreUnitLength(t *testing.T) {
	ix := BuildIndex([]doctree.SectionRecord{
		{Content: "fraud fraud audit"},
		{Content: "audit report summary"},
	})
	for i, v := range ix.vectors {
		var sum float64
		for _, w := range v.weights {
			sum += w * w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "vector %d", i)
	}
}

func TestIndex_RankIgnoresUnknownTerms(t *testing.T) {
	ix := BuildIndex([]doctree.SectionRecord{
		{Content: "wire transfer"},
		{Content: "board minutes"},
	})
	ranked, err := ix.Rank("wire zebra")
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "wire transfer", ranked[0].Section.Content)
	assert.Greater(t, ranked[0].Score, 0.0)
	assert.Equal(t, 0.0, ranked[1].Score)

	ranked, err = ix.Rank("zebra")
	require.NoError(t, err)
	for _, c := range ranked {
		assert.Equal(t, 0.0, c.Score)
	}
}

func TestIndex_IdenticalTextScoresOne(t *testing.T) {
	ix := BuildIndex([]doctree.SectionRecord{{Content: "litigation hold notice"}})
	ranked, err := ix.Rank("litigation hold notice")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.LessOrEqual(t, ranked[0].Score, 1.0)
}

func TestIndex_RankRejectsCorruptIndex(t *testing.T) {
	ix := BuildIndex([]doctree.SectionRecord{{Content: "one"}, {Content: "two"}})
	ix.vectors = ix.vectors[:1]
	_, err := ix.Rank("one")
	assert.ErrorIs(t, err, ErrVectorize)
}

func TestIndex_DoesNotAliasInput(t *testing.T) {
	input := []doctree.SectionRecord{{DocumentTitle: "a", Content: "alpha"}}
	ix := BuildIndex(input)
	input[0].DocumentTitle = "changed"

	ranked, err := ix.Rank("alpha")
	require.NoError(t, err)
	assert.Equal(t, "a", ranked[0].Section.DocumentTitle)
}
