package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/roomcast/internal/journal"
)

// handleListJournal returns recent dispatch outcomes, newest first.
//
// GET /api/v1/journal?action=&status=&limit=&offset=
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "journal is not configured")
		return
	}

	filter := journal.Filter{
		Action: r.URL.Query().Get("action"),
		Status: r.URL.Query().Get("status"),
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("journal query failed", "error", err)
		writeInternalError(w, "journal query failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
