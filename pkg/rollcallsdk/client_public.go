package rollcallsdk

import "context"

// Endpoints that need no session.

// GetLiveness reports whether the process is up.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return getJSON[HealthResponse](ctx, c, "/livez", nil)
}

// GetReadiness reports whether the store and session verification are
// usable. A degraded service answers 503, returned as an *APIError.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return getJSON[HealthResponse](ctx, c, "/readyz", nil)
}

// GetJWKS fetches the keys sessions are signed with. Rollcall serves them
// only when it mints sessions itself; in jwks mode this is a 404.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	return getJSON[JWKSResponse](ctx, c, "/.well-known/jwks.json", nil)
}
