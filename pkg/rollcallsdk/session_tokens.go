package rollcallsdk

import (
	"context"
	"net/http"
	"strings"
)

// CreateAccessToken issues a new attendance token for the session's
// volunteer. A cooldown violation is an *APIError with code
// "resource-exhausted" whose description says how long to wait.
func (s *Session) CreateAccessToken(ctx context.Context) (*CreateAccessTokenResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/access-tokens", strings.NewReader("{}"))
	if err != nil {
		return nil, err
	}

	var out CreateAccessTokenResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// RedeemAccessToken consumes one use of a scanned token. Requires a guard
// session.
func (s *Session) RedeemAccessToken(ctx context.Context, token string) (*RedeemAccessTokenResponse, error) {
	body, err := jsonBody(RedeemAccessTokenRequest{Token: token})
	if err != nil {
		return nil, err
	}
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/access-tokens/redeem", body)
	if err != nil {
		return nil, err
	}

	var out RedeemAccessTokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
