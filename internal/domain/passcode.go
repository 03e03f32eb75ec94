package domain

import "time"

// PasscodeRecord is the single live one-time passcode for an identifier.
// A new issuance replaces the record; it is never merged.
type PasscodeRecord struct {
	Identifier string    `json:"identifier" dynamodbav:"identifier"`
	Secret     string    `json:"secret" dynamodbav:"secret"`
	Code       string    `json:"code,omitempty" dynamodbav:"code,omitempty"` // retained only by the plain policy
	ExpiresAt  time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Attempts   int       `json:"attempts" dynamodbav:"attempts"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Expired reports whether the record is no longer valid at now.
// The record is invalid at or after ExpiresAt.
func (r *PasscodeRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Clone returns a copy so stores never share a record with their callers.
func (r *PasscodeRecord) Clone() *PasscodeRecord {
	c := *r
	return &c
}
