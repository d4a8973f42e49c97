package domain

import "time"

// UnknownVolunteerName is recorded when the issuing volunteer has no
// directory entry at redemption time.
const UnknownVolunteerName = "Unknown"

// AttendanceRecord is one successful check-in. Name and email are copied
// from the directory when the record is written and never updated.
type AttendanceRecord struct {
	ID             string
	VolunteerID    string
	VolunteerName  string
	VolunteerEmail string
	TokenID        string
	Timestamp      time.Time
	RecordedBy     string
}
