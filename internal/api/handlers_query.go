package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/insight"
	"github.com/dgallion1/docinsight/internal/store"
)

type queryResponse struct {
	Query    string            `json:"query"`
	Insights []insight.Insight `json:"insights"`
	Message  string            `json:"message,omitempty"`
}

// handleQuery takes the query from ?q= or a {"query": ...} JSON body.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if r.Method == http.MethodPost && q == "" {
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCollectBody)).Decode(&body); err != nil {
			jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
			return
		}
		q = body.Query
	}
	q = strings.TrimSpace(q)

	insights := s.deps.Engine.AnswerQuery(r.Context(), q)
	if insights == nil {
		insights = []insight.Insight{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Query:    q,
		Insights: insights,
		Message:  insight.Message(q, insights),
	})
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.IndexStats())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.deps.Engine.RefreshIndex(r.Context())
	writeJSON(w, http.StatusOK, s.deps.Engine.IndexStats())
}

func (s *Server) handleSearchSections(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	limit := store.DefaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	sections, err := s.deps.Store.SearchSections(r.Context(), q, limit)
	if err != nil {
		s.log.Error("section search failed", "query", q, "error", err)
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}
	if sections == nil {
		sections = []doctree.SectionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "sections": sections})
}
