package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// DirectoryService manages directory entries. Role changes land in the
// directory and reach a user through the role claim of their next session.
type DirectoryService struct {
	Store store.Store
	Now   func() time.Time
}

// RoleAssignment describes a completed role change.
type RoleAssignment struct {
	UserID  string
	Email   string
	Role    domain.Role
	Message string
}

// AssignRole sets the role of the user registered under email. Only admins
// and superadmins may call it.
func (s *DirectoryService) AssignRole(ctx context.Context, caller *domain.Caller, email, role string) (RoleAssignment, error) {
	log := slogx.FromContext(ctx)

	if caller == nil || caller.UID == "" {
		return RoleAssignment{}, ErrUnauthenticated
	}
	if !caller.Role.IsAdmin() {
		log.Warn("role assignment refused", slog.String("role", string(caller.Role)))
		return RoleAssignment{}, ErrAdminsOnly
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return RoleAssignment{}, err
	}
	newRole, err := domain.ParseRole(role)
	if err != nil {
		return RoleAssignment{}, ErrInvalidRole
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return RoleAssignment{}, ErrUserNotFound
	}
	if err != nil {
		log.Error("failed to look up user", slog.Any("error", err))
		return RoleAssignment{}, internal(ErrInternal, err)
	}

	if err := s.Store.Users().UpdateUserRole(ctx, u.ID, newRole, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RoleAssignment{}, ErrUserNotFound
		}
		log.Error("failed to update role", slog.String("user_id", u.ID), slog.Any("error", err))
		return RoleAssignment{}, internal(ErrInternal, err)
	}

	log.Info("role assigned",
		slog.String("user_id", u.ID),
		slog.String("from", string(u.Role)),
		slog.String("to", string(newRole)),
	)

	return RoleAssignment{
		UserID:  u.ID,
		Email:   u.Email,
		Role:    newRole,
		Message: fmt.Sprintf("Success. User %s now has the role %q.", u.Email, newRole),
	}, nil
}

// AddUser creates a directory entry. It backs the operator CLI, which runs
// without a session, so there is no caller check.
func (s *DirectoryService) AddUser(ctx context.Context, id, name, email, role string) (domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, ErrInvalidRole
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, newError(KindInvalidArgument, "A user id is required.")
	}

	now := s.now()
	u := domain.User{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Email:     email,
		Role:      r,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, internal(ErrInternal, err)
	}
	return u, nil
}

// ListUsers returns directory entries, most recently added first. An empty
// role lists everyone. Only admins and superadmins may call it.
func (s *DirectoryService) ListUsers(ctx context.Context, caller *domain.Caller, role string, limit int) ([]domain.User, error) {
	if caller == nil || caller.UID == "" {
		return nil, ErrUnauthenticated
	}
	if !caller.Role.IsAdmin() {
		return nil, ErrAdminsOnly
	}

	var filter domain.Role
	if strings.TrimSpace(role) != "" {
		r, err := domain.ParseRole(role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		filter = r
	}

	users, err := s.Store.Users().ListUsers(ctx, filter, clampLimit(limit))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list users", slog.Any("error", err))
		return nil, internal(ErrInternal, err)
	}
	return users, nil
}

// GetUser returns the directory entry for a uid.
func (s *DirectoryService) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, newError(KindNotFound, "No user exists with that id.")
	}
	if err != nil {
		return domain.User{}, internal(ErrInternal, err)
	}
	return u, nil
}

// GetUserByEmail returns the directory entry registered under email.
func (s *DirectoryService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, internal(ErrInternal, err)
	}
	return u, nil
}

func (s *DirectoryService) now() time.Time { return nowMillis(s.Now) }

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrEmailRequired
	}
	return email, nil
}
