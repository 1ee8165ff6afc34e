package models

import "time"

// Identity is attached to a request once an end-user access token has been
// verified and its subject resolved.
type Identity struct {
	UserID    string
	Role      Role
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
