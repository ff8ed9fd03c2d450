package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/roomcast/internal/beacon"
	"github.com/nerrad567/roomcast/internal/command"
	"github.com/nerrad567/roomcast/internal/dispatch"
)

// Percentage bounds enforced at the input boundary. The encoder
// assumes these hold; violations must never reach it.
const (
	minPercent = 0
	maxPercent = 100
)

// TriggerRequest is the body of a command trigger.
type TriggerRequest struct {
	// Percent is the requested level. Required, 0-100 inclusive.
	Percent *int `json:"percent"`
}

// TriggerResponse reports an accepted command.
type TriggerResponse struct {
	JobID   string `json:"job_id"`
	Action  string `json:"action"`
	Room    string `json:"room"`
	Percent int    `json:"percent"`
	Payload string `json:"payload"`
}

// handleTriggerCommand is the trigger boundary: validate the level,
// read the resolved room, encode, dispatch.
//
// POST /api/v1/commands/{action} with body {"percent": N}
//
// Responses:
//   - 202 with the job ID and encoded payload on acceptance
//   - 400 for a malformed body or out-of-range percent
//   - 404 for an unknown action
//   - 409 when no room is resolved or the room cannot be encoded
//   - 503 when the dispatch queue is full or stopped
func (s *Server) handleTriggerCommand(w http.ResponseWriter, r *http.Request) {
	action, err := command.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeNotFound(w, "unknown action; expected light, store, or rad")
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Percent == nil {
		writeValidationError(w, "percent is required")
		return
	}
	percent := *req.Percent
	if percent < minPercent || percent > maxPercent {
		writeValidationError(w, "percent must be between 0 and 100")
		return
	}

	// The trigger reads the room synchronously; a command always
	// targets the room that was resolved at the moment of the trigger.
	room, err := s.resolver.CurrentRoom()
	if err != nil {
		if errors.Is(err, beacon.ErrNoRoom) {
			writeConflict(w, "no room resolved yet; move near a beacon and retry")
			return
		}
		s.logger.Error("room lookup failed", "error", err)
		writeInternalError(w, "room lookup failed")
		return
	}

	payload, err := s.encoder.Encode(action, room, percent)
	if err != nil {
		s.writeEncodeError(w, room, err)
		return
	}

	jobID, err := s.dispatcher.Dispatch(action, room, percent, payload)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrQueueFull):
			writeUnavailable(w, "command queue is full, retry shortly")
		case errors.Is(err, dispatch.ErrNotRunning):
			writeUnavailable(w, "dispatcher is not running")
		default:
			s.logger.Error("dispatch failed", "action", action.Name(), "error", err)
			writeInternalError(w, "dispatch failed")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, TriggerResponse{
		JobID:   jobID.String(),
		Action:  action.Name(),
		Room:    room,
		Percent: percent,
		Payload: payload,
	})
}

// writeEncodeError maps encoder rejections onto HTTP statuses. All of
// them reject the command without side effects, so they are client
// errors, never 500s.
func (s *Server) writeEncodeError(w http.ResponseWriter, room string, err error) {
	switch {
	case errors.Is(err, command.ErrUnknownRoom):
		writeConflict(w, "no light node configured for room "+room)
	case errors.Is(err, command.ErrInvalidRoom):
		writeConflict(w, "room "+room+" cannot be addressed on the bus")
	case errors.Is(err, command.ErrInvalidPercent):
		// The boundary above should make this unreachable; fail loudly
		// rather than let a bad level through.
		writeValidationError(w, "percent must be between 0 and 100")
	default:
		s.logger.Error("command encoding failed", "room", room, "error", err)
		writeInternalError(w, "command encoding failed")
	}
}
