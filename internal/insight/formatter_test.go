package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docinsight/internal/doctree"
)

func TestCitation(t *testing.T) {
	tests := []struct {
		name    string
		heading string
		want    string
	}{
		{"with heading", "Page 2", "Memo | Page 2 (/docs/memo.txt)"},
		{"without heading", "", "Memo (/docs/memo.txt)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doctree.SectionRecord{
				DocumentTitle: "Memo",
				DocumentPath:  "/docs/memo.txt",
				Heading:       tt.heading,
				Content:       "body",
			}
			assert.Equal(t, tt.want, Citation(rec))
		})
	}
}

func TestFormatter_FloorIsStrict(t *testing.T) {
	f := NewFormatter(5, 0.05)
	got := f.Format([]Candidate{
		{Section: section("a", "one"), Score: 0.9},
		{Section: section("b", "two"), Score: 0.05},
		{Section: section("c", "three"), Score: 0.0499},
	})
	require.Len(t, got, 2)
	assert.Equal(t, 0.9, got[0].Score)
	assert.Equal(t, 0.05, got[1].Score)
}

func TestFormatter_FloorAppliedBeforeCap(t *testing.T) {
	f := NewFormatter(2, 0.05)
	got := f.Format([]Candidate{
		{Section: section("a", "one"), Score: 0.8},
		{Section: section("b", "two"), Score: 0.01},
		{Section: section("c", "three"), Score: 0.3},
		{Section: section("d", "four"), Score: 0.2},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a (/docs/a.txt)", got[0].Citation)
	assert.Equal(t, "c (/docs/c.txt)", got[1].Citation)
}

func TestFormatter_TrimsSnippet(t *testing.T) {
	f := NewFormatter(3, 0.05)
	rec := doctree.SectionRecord{
		DocumentTitle: "Memo",
		DocumentPath:  "/docs/memo.txt",
		Heading:       "Email Body",
		Content:       "\n  Please preserve all records.  \n",
	}
	got := f.Format([]Candidate{{Section: rec, Score: 0.5}})
	require.Len(t, got, 1)
	assert.Equal(t, "Please preserve all records.", got[0].Snippet)
	assert.Equal(t, "Source: Memo | Email Body (/docs/memo.txt)\nExtract: Please preserve all records.", got[0].Answer)
}

func TestNewFormatter_Defaults(t *testing.T) {
	f := NewFormatter(0, -1)
	assert.Equal(t, DefaultMaxResults, f.MaxResults)
	assert.Equal(t, DefaultMinScore, f.MinScore)

	f = NewFormatter(7, 0)
	assert.Equal(t, 7, f.MaxResults)
	assert.Equal(t, 0.0, f.MinScore)
}

func TestFormatter_Empty(t *testing.T) {
	assert.Empty(t, NewFormatter(3, 0.05).Format(nil))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, MsgEmptyQuery, Message("   ", nil))
	assert.Equal(t, MsgNoResults, Message("wire", nil))
	assert.Empty(t, Message("wire", []Insight{{Citation: "x"}}))
}
