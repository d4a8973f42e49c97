package sqlite

import (
	"context"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
)

type attendanceRepo struct {
	db dbtx
}

const attendanceColumns = `id, volunteer_id, volunteer_name, volunteer_email, token_id, timestamp, recorded_by`

func (r *attendanceRepo) CreateAttendanceRecord(ctx context.Context, rec domain.AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.VolunteerID,
		rec.VolunteerName,
		rec.VolunteerEmail,
		rec.TokenID,
		toMillis(rec.Timestamp),
		rec.RecordedBy,
	)
	return mapWriteErr(err)
}

func (r *attendanceRepo) ListAttendanceByVolunteer(ctx context.Context, volunteerID string, limit int) ([]domain.AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		WHERE volunteer_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, volunteerID, limit)
}

func (r *attendanceRepo) ListAttendance(ctx context.Context, limit int) ([]domain.AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
}

func (r *attendanceRepo) list(ctx context.Context, query string, args ...any) ([]domain.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AttendanceRecord
	for rows.Next() {
		var (
			rec domain.AttendanceRecord
			ts  int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.VolunteerID,
			&rec.VolunteerName,
			&rec.VolunteerEmail,
			&rec.TokenID,
			&ts,
			&rec.RecordedBy,
		); err != nil {
			return nil, err
		}
		rec.Timestamp = fromMillis(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}
