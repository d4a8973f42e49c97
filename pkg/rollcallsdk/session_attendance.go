package rollcallsdk

import (
	"context"
	"strconv"
)

// ListMyAttendance returns the caller's own check-ins, newest first. A limit
// of zero uses the server default.
func (s *Session) ListMyAttendance(ctx context.Context, limit int) (*ListAttendanceResponse, error) {
	return getJSON[ListAttendanceResponse](ctx, s.client, withLimit("/v1/attendance/me", limit), s.bearer())
}

// ListAttendance returns every check-in, newest first. Requires an admin
// session.
func (s *Session) ListAttendance(ctx context.Context, limit int) (*ListAttendanceResponse, error) {
	return getJSON[ListAttendanceResponse](ctx, s.client, withLimit("/v1/attendance", limit), s.bearer())
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return path + "?limit=" + strconv.Itoa(limit)
}
