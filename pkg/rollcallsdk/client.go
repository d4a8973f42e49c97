package rollcallsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the rollcall service. It provides access to the
// unauthenticated endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10 second request timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSession returns a Session that sends token as its bearer credential.
// The token is not checked until the first request.
func (c *SDKClient) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}
