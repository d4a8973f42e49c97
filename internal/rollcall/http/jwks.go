package http

import (
	"net/http"

	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/rollcallsdk"
)

// JWKSHandler exposes the public half of the session signing keys.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, rollcallsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
