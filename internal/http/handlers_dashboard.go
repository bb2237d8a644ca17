package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// handleDashboard serves the aggregated snapshot. The queries are bounded so
// a slow disk cannot hang the connection.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	snap, err := s.tracker.Snapshot(ctx, userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard snapshot error", "error", err, "user_id", userID(r))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
