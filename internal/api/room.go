package api

import (
	"net/http"
	"time"
)

// RoomResponse reports the currently resolved room.
type RoomResponse struct {
	// Resolved is false until the first scan maps a beacon to a room.
	Resolved bool `json:"resolved"`

	// Room is the resolved room label; empty while unresolved.
	Room string `json:"room,omitempty"`

	// Minor is the beacon that produced the resolution.
	Minor int `json:"minor,omitempty"`

	// Since is when the room last changed.
	Since *time.Time `json:"since,omitempty"`

	// LastSeen is when a scan last confirmed the room.
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// handleGetRoom returns the current room resolution.
//
// GET /api/v1/room
func (s *Server) handleGetRoom(w http.ResponseWriter, _ *http.Request) {
	pos, ok := s.resolver.Current()
	if !ok {
		writeJSON(w, http.StatusOK, RoomResponse{Resolved: false})
		return
	}

	writeJSON(w, http.StatusOK, RoomResponse{
		Resolved: true,
		Room:     pos.Room,
		Minor:    pos.Minor,
		Since:    &pos.Since,
		LastSeen: &pos.LastSeen,
	})
}
