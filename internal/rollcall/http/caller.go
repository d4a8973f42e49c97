package http

import (
	"context"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

// callerFromContext turns verified session claims into a domain caller.
// A role that does not parse is kept empty so every role check fails.
func callerFromContext(ctx context.Context) *domain.Caller {
	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return nil
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		role = ""
	}
	return &domain.Caller{UID: claims.Subject, Role: role}
}
