package session

import "time"

// User is the resolved identity carried by a completed login session.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Challenge is a pending two-factor login challenge. It is created when the
// backend answers a password login with requires_2fa and both temp_token and
// user_id, and it is consumed exactly once by the completion call.
type Challenge struct {
	TempToken            string
	UserID               int64
	BackupCodesAvailable bool
	IssuedAt             time.Time
}
