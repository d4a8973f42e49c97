package rollcallsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an unauthenticated request.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// doAuthRequest performs a request carrying the session's bearer token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	headers := s.bearer()
	if body != nil {
		headers["Content-Type"] = "application/json"
	}
	return s.client.doRequest(ctx, method, path, body, headers)
}

// getJSON sends a GET and decodes a 200 response into a new T. headers may
// be nil.
func getJSON[T any](ctx context.Context, c *SDKClient, path string, headers map[string]string) (*T, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, headers)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := decodeJSON(resp, out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// bearer is the header set for an authenticated request.
func (s *Session) bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

// jsonBody encodes v for a request body.
func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.NewReader(b), nil
}

// decodeJSON reads the response and decodes it into target when the status
// matches, or returns an *APIError otherwise.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		if err := parseErrorResponse(resp, bodyBytes); err != nil {
			return err
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
