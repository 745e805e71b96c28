package domain

import "time"

// OTPRecord stores a one-time passcode issued to an identity.
// PK: identity. The record is kept until it is consumed, purged as expired,
// or replaced by a newer code.
type OTPRecord struct {
	Identity  string    `json:"identity" dynamodbav:"identity"`
	CodeHash  string    `json:"code_hash" dynamodbav:"code_hash"` // bcrypt
	IssuedAt  time.Time `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
}

// Expired reports whether the code is no longer valid at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
