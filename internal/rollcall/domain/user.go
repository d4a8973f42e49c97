package domain

import "time"

// User is a directory entry. Its Role is what new sessions are minted with;
// authorization itself only ever looks at the session claim.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
