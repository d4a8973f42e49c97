package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/rollcallsdk"
)

type AttendanceHandler struct {
	AttendanceService *service.AttendanceService
}

// HandleMine handles GET /v1/attendance/me.
func (h *AttendanceHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	recs, err := h.AttendanceService.ListMine(r.Context(), callerFromContext(r.Context()), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toListResponse(recs))
}

// HandleAll handles GET /v1/attendance.
func (h *AttendanceHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	recs, err := h.AttendanceService.ListAll(r.Context(), callerFromContext(r.Context()), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toListResponse(recs))
}

// parseLimit reads ?limit=. Missing means the service default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidArgument, "limit must be a positive integer.")
		return 0, false
	}
	return n, true
}

func toListResponse(recs []domain.AttendanceRecord) rollcallsdk.ListAttendanceResponse {
	out := rollcallsdk.ListAttendanceResponse{
		Records: make([]rollcallsdk.AttendanceRecord, len(recs)),
	}
	for i, rec := range recs {
		out.Records[i] = rollcallsdk.AttendanceRecord{
			ID:             rec.ID,
			VolunteerID:    rec.VolunteerID,
			VolunteerName:  rec.VolunteerName,
			VolunteerEmail: rec.VolunteerEmail,
			TokenID:        rec.TokenID,
			Timestamp:      rec.Timestamp.UnixMilli(),
			RecordedBy:     rec.RecordedBy,
		}
	}
	return out
}
