package http

import (
	"net/http"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/rollcallsdk"
)

type IssueTokenHandler struct {
	IssuerService *service.IssuerService
}

// ServeHTTP handles POST /v1/access-tokens. The body is ignored beyond
// being a JSON object.
func (h *IssueTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct{}
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	issued, err := h.IssuerService.IssueToken(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, rollcallsdk.CreateAccessTokenResponse{
		TokenID:   issued.TokenID,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.UnixMilli(),
	})
}

type RedeemTokenHandler struct {
	RedeemerService *service.RedeemerService
}

// ServeHTTP handles POST /v1/access-tokens/redeem.
func (h *RedeemTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rollcallsdk.RedeemAccessTokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := h.RedeemerService.RedeemToken(r.Context(), callerFromContext(r.Context()), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := rollcallsdk.RedeemAccessTokenResponse{
		Success:       true,
		TokenID:       res.TokenID,
		RedeemedAt:    res.RedeemedAt.UnixMilli(),
		RemainingUses: res.RemainingUses,
		AttendanceID:  res.AttendanceID,
	}
	if v := res.Volunteer; v != nil {
		resp.Volunteer = &rollcallsdk.VolunteerInfo{UID: v.UID, Name: v.Name, Email: v.Email}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
