package rollcallsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SetUserRole changes the role of the user with the given email. Requires an
// admin session. The new role applies from that user's next session.
func (s *Session) SetUserRole(ctx context.Context, email, role string) (*SetUserRoleResponse, error) {
	body, err := jsonBody(SetUserRoleRequest{Email: email, Role: role})
	if err != nil {
		return nil, err
	}
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/users/role", body)
	if err != nil {
		return nil, err
	}

	var out SetUserRoleResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns directory entries, optionally only those with role.
// Requires an admin session. A limit of zero uses the server default.
func (s *Session) ListUsers(ctx context.Context, role string, limit int) (*ListUsersResponse, error) {
	q := url.Values{}
	if role != "" {
		q.Set("role", role)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return getJSON[ListUsersResponse](ctx, s.client, path, s.bearer())
}
