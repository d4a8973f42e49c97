package rollcallsdk

import (
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// ============================================================================
// Internal Response Types
// ============================================================================

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Access Token Types
// ============================================================================

// CreateAccessTokenResponse is returned from POST /v1/access-tokens. Token is
// the raw value to render as a QR code; the server keeps only a fingerprint
// and cannot show it again.
type CreateAccessTokenResponse struct {
	TokenID string `json:"tokenId"`
	Token   string `json:"token"`
	// ExpiresAt is unix milliseconds.
	ExpiresAt int64 `json:"expiresAt"`
}

// RedeemAccessTokenRequest is the body of POST /v1/access-tokens/redeem.
type RedeemAccessTokenRequest struct {
	Token string `json:"token" validate:"max=128"`
}

// VolunteerInfo identifies the volunteer whose token was scanned.
type VolunteerInfo struct {
	UID   string  `json:"uid"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

// RedeemAccessTokenResponse is returned from a successful redemption.
// Volunteer is nil when the issuing account has no directory entry.
type RedeemAccessTokenResponse struct {
	Success       bool           `json:"success"`
	TokenID       string         `json:"tokenId"`
	Volunteer     *VolunteerInfo `json:"volunteer"`
	RedeemedAt    int64          `json:"redeemedAt"`
	RemainingUses int            `json:"remainingUses"`
	AttendanceID  string         `json:"asistenciaId"`
}

// ============================================================================
// User Types
// ============================================================================

// SetUserRoleRequest is the body of POST /v1/users/role.
type SetUserRoleRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,max=32"`
}

type SetUserRoleResponse struct {
	Message string `json:"message"`
}

// User is a directory entry.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"`
}

// ListUsersResponse holds users most recently added first.
type ListUsersResponse struct {
	Users []User `json:"users"`
}

// ============================================================================
// Attendance Types
// ============================================================================

// AttendanceRecord is one check-in. Name and email are as they were when the
// token was scanned.
type AttendanceRecord struct {
	ID             string `json:"id"`
	VolunteerID    string `json:"volunteerId"`
	VolunteerName  string `json:"volunteerName"`
	VolunteerEmail string `json:"volunteerEmail,omitempty"`
	TokenID        string `json:"tokenId"`
	Timestamp      int64  `json:"timestamp"`
	RecordedBy     string `json:"recordedBy"`
}

// ListAttendanceResponse holds records newest first.
type ListAttendanceResponse struct {
	Records []AttendanceRecord `json:"records"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error".
type HealthChecks struct {
	Database string `json:"database"`
	Identity string `json:"identity"`
}

// JWKSResponse is served from /.well-known/jwks.json when rollcall signs its
// own sessions.
type JWKSResponse jwtx.JWKS
