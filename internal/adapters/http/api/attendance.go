package api

import (
	"net/http"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// AttendanceHandler serves the session's attendance, roster and overlay.
type AttendanceHandler struct {
	deps Dependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps Dependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

type attendanceRow struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

type attendanceResponse struct {
	Count   int             `json:"count"`
	Records []attendanceRow `json:"records"`
}

// HandleAttendance handles GET /attendance: this session's first sightings
// in the order they were logged.
func (h *AttendanceHandler) HandleAttendance(w http.ResponseWriter, r *http.Request) {
	records := h.deps.Attendance(r.Context())
	rows := make([]attendanceRow, len(records))
	for i, rec := range records {
		rows[i] = attendanceRow{Name: string(rec.Identity), Time: rec.Time}
	}
	writeJSON(w, http.StatusOK, attendanceResponse{Count: len(rows), Records: rows})
}

type rosterResponse struct {
	Count      int              `json:"count"`
	Identities []model.Identity `json:"identities"`
}

// HandleRoster handles GET /roster.
func (h *AttendanceHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	ids := h.deps.Roster(r.Context())
	if ids == nil {
		ids = []model.Identity{}
	}
	writeJSON(w, http.StatusOK, rosterResponse{Count: len(ids), Identities: ids})
}

// HandleOverlay handles GET /overlay: labels of the last processed frame.
func (h *AttendanceHandler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Overlay(r.Context()))
}
