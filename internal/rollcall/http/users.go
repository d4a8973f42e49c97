package http

import (
	"net/http"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/rollcallsdk"
)

type SetRoleHandler struct {
	DirectoryService *service.DirectoryService
}

// ServeHTTP handles POST /v1/users/role.
func (h *SetRoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rollcallsdk.SetUserRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	got, err := h.DirectoryService.AssignRole(r.Context(), callerFromContext(r.Context()), req.Email, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rollcallsdk.SetUserRoleResponse{Message: got.Message})
}

type ListUsersHandler struct {
	DirectoryService *service.DirectoryService
}

// ServeHTTP handles GET /v1/users?role=&limit=.
func (h *ListUsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	users, err := h.DirectoryService.ListUsers(r.Context(), callerFromContext(r.Context()), r.URL.Query().Get("role"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := rollcallsdk.ListUsersResponse{Users: make([]rollcallsdk.User, len(users))}
	for i, u := range users {
		out.Users[i] = rollcallsdk.User{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      string(u.Role),
			CreatedAt: u.CreatedAt.UnixMilli(),
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
