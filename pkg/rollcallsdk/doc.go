// Package rollcallsdk is a Go client for the rollcall attendance API.
//
// An SDKClient covers the unauthenticated endpoints (health, JWKS). A Session
// wraps a bearer session token and covers the token, role and attendance
// endpoints:
//
//	client := rollcallsdk.NewSDKClient("https://rollcall.example.org")
//	sess := client.NewSession(sessionJWT)
//
//	issued, err := sess.CreateAccessToken(ctx)
//	...
//	res, err := guardSess.RedeemAccessToken(ctx, issued.Token)
//
// Every non-2xx response is returned as an *APIError.
package rollcallsdk
