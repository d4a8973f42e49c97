package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// AttendanceService reads the attendance ledger.
type AttendanceService struct {
	Store store.Store
}

// ListMine returns the caller's own check-ins, newest first.
func (s *AttendanceService) ListMine(ctx context.Context, caller *domain.Caller, limit int) ([]domain.AttendanceRecord, error) {
	if caller == nil || caller.UID == "" {
		return nil, ErrUnauthenticated
	}
	recs, err := s.Store.Attendance().ListAttendanceByVolunteer(ctx, caller.UID, clampLimit(limit))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list attendance", slog.Any("error", err))
		return nil, internal(ErrInternal, err)
	}
	return recs, nil
}

// ListAll returns every check-in, newest first. Admins only.
func (s *AttendanceService) ListAll(ctx context.Context, caller *domain.Caller, limit int) ([]domain.AttendanceRecord, error) {
	if caller == nil || caller.UID == "" {
		return nil, ErrUnauthenticated
	}
	if !caller.Role.IsAdmin() {
		return nil, ErrAdminsOnly
	}
	recs, err := s.Store.Attendance().ListAttendance(ctx, clampLimit(limit))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list attendance", slog.Any("error", err))
		return nil, internal(ErrInternal, err)
	}
	return recs, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}
