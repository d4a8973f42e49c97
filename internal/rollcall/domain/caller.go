package domain

// Caller is the authenticated identity behind a request, as asserted by a
// verified session. A nil *Caller means the request was unauthenticated.
type Caller struct {
	UID  string
	Role Role
}
