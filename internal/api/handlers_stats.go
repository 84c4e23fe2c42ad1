package api

import (
	"net/http"

	"github.com/dgallion1/docinsight/internal/stats"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"query":       snapshot(s.deps.QueryLatency),
		"refresh":     snapshot(s.deps.RefreshLatency),
		"index":       s.deps.Engine.IndexStats(),
		"queue_depth": s.deps.Pipeline.QueueDepth(),
	})
}

func snapshot(l *stats.Latency) stats.Snapshot {
	if l == nil {
		return stats.Snapshot{}
	}
	return l.Snapshot()
}
