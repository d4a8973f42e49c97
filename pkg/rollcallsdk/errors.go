package rollcallsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in the "error" field of a failed response.
const (
	ErrorCodeUnauthenticated    = "unauthenticated"
	ErrorCodeInvalidArgument    = "invalid-argument"
	ErrorCodePermissionDenied   = "permission-denied"
	ErrorCodeNotFound           = "not-found"
	ErrorCodeFailedPrecondition = "failed-precondition"
	ErrorCodeResourceExhausted  = "resource-exhausted"
	ErrorCodeInternal           = "internal"
)

// APIError is a failed API call. Description is safe to show to end users.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse converts a non-2xx response into an *APIError. Bodies
// that are not in the rollcall error shape fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeInternal,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
