package models

import "time"

// ResetCode is a short-lived single-use password reset code keyed by email.
type ResetCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether the code is still usable at now.
func (r ResetCode) ValidAt(now time.Time) bool {
	return r.Code != "" && now.Before(r.ExpiresAt)
}
