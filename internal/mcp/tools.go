package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/insight"
	"github.com/dgallion1/docinsight/internal/store"
)

type AnswerInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the ingested documents"`
}

type AnswerOutput struct {
	Query    string            `json:"query"`
	Insights []insight.Insight `json:"insights"`
	Message  string            `json:"message,omitempty"`
}

type SearchInput struct {
	Keywords string `json:"keywords" jsonschema:"text to find in section content, case-insensitive"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of sections to return (default 20)"`
}

type SearchOutput struct {
	Sections []doctree.SectionRecord `json:"sections"`
	Count    int                     `json:"count"`
}

type RefreshInput struct{}

type RefreshOutput struct {
	Sections int    `json:"sections"`
	Terms    int    `json:"terms"`
	BuiltAt  string `json:"built_at,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_query",
		Description: "Answer a question with cited extracts from the ingested documents",
	}, s.handleAnswer)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_sections",
		Description: "Find document sections containing the given keywords",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refresh_index",
		Description: "Rebuild the retrieval index from stored sections",
	}, s.handleRefresh)
}

func (s *Server) handleAnswer(ctx context.Context, _ *mcp.CallToolRequest, input AnswerInput) (*mcp.CallToolResult, AnswerOutput, error) {
	q := strings.TrimSpace(input.Query)
	insights := s.retriever.AnswerQuery(ctx, q)
	if insights == nil {
		insights = []insight.Insight{}
	}
	return nil, AnswerOutput{
		Query:    q,
		Insights: insights,
		Message:  insight.Message(q, insights),
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Keywords) == "" {
		return nil, SearchOutput{}, fmt.Errorf("keywords are required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	sections, err := s.searcher.SearchSections(ctx, input.Keywords, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if sections == nil {
		sections = []doctree.SectionRecord{}
	}
	return nil, SearchOutput{Sections: sections, Count: len(sections)}, nil
}

func (s *Server) handleRefresh(ctx context.Context, _ *mcp.CallToolRequest, _ RefreshInput) (*mcp.CallToolResult, RefreshOutput, error) {
	s.retriever.RefreshIndex(ctx)
	st := s.retriever.IndexStats()
	out := RefreshOutput{Sections: st.Sections, Terms: st.Terms}
	if !st.BuiltAt.IsZero() {
		out.BuiltAt = st.BuiltAt.Format(time.RFC3339)
	}
	return nil, out, nil
}
