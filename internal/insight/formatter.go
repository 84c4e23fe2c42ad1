package insight

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

const (
	DefaultMaxResults = 3
	DefaultMinScore   = 0.05
)

// User-facing messages for queries that yield no insights.
const (
	MsgEmptyQuery = "Enter a query."
	MsgNoResults  = "No relevant information found in the documents."
)

// Message returns the note shown alongside the results of query.
func Message(query string, insights []Insight) string {
	switch {
	case strings.TrimSpace(query) == "":
		return MsgEmptyQuery
	case len(insights) == 0:
		return MsgNoResults
	}
	return ""
}

// Insight is a citation-bearing answer derived from one ranked section.
type Insight struct {
	Answer   string  `json:"answer"`
	Citation string  `json:"citation"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

// Formatter applies the relevance floor and result cap to ranked candidates.
type Formatter struct {
	MaxResults int
	MinScore   float64
}

// NewFormatter falls back to the defaults for a non-positive cap or a negative floor.
func NewFormatter(maxResults int, minScore float64) Formatter {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	return Formatter{MaxResults: maxResults, MinScore: minScore}
}

// Format expects candidates sorted best first. Scores strictly below
// MinScore are dropped before the cap is applied.
func (f Formatter) Format(candidates []Candidate) []Insight {
	limit := f.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	var out []Insight
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		if c.Score < f.MinScore {
			continue
		}
		citation := Citation(c.Section)
		snippet := strings.TrimSpace(c.Section.Content)
		out = append(out, Insight{
			Answer:   fmt.Sprintf("Source: %s\nExtract: %s", citation, snippet),
			Citation: citation,
			Snippet:  snippet,
			Score:    c.Score,
		})
	}
	return out
}

// Citation renders "Title | Heading (path)", omitting the heading part when empty.
func Citation(s doctree.SectionRecord) string {
	heading := ""
	if s.Heading != "" {
		heading = " | " + s.Heading
	}
	return fmt.Sprintf("%s%s (%s)", s.DocumentTitle, heading, s.DocumentPath)
}
