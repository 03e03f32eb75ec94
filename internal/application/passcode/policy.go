package passcode

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// VerificationPolicy decides how a submitted code is compared against a
// stored record. It is chosen once at construction time from the runtime
// mode and never switched afterwards.
type VerificationPolicy interface {
	Name() string
	// Retain returns the value kept in PasscodeRecord.Code for a freshly issued code.
	Retain(code string) string
	// RevealCode reports whether the plain code may be echoed to the client and logs.
	RevealCode() bool
	Matches(rec *domain.PasscodeRecord, submitted string, now time.Time) (bool, error)
}

// totpOpts returns 6-digit SHA1 options for the given step.
func totpOpts(step time.Duration, skew uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(step / time.Second),
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// PlainPolicy compares the submitted code with the plain code kept in the
// record. Local development and tests only.
type PlainPolicy struct{}

func NewPlainPolicy() *PlainPolicy { return &PlainPolicy{} }

func (*PlainPolicy) Name() string              { return "plain" }
func (*PlainPolicy) Retain(code string) string { return code }
func (*PlainPolicy) RevealCode() bool          { return true }

func (*PlainPolicy) Matches(rec *domain.PasscodeRecord, submitted string, _ time.Time) (bool, error) {
	if rec.Code == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(rec.Code), []byte(strings.TrimSpace(submitted))) == 1, nil
}

// TOTPPolicy re-derives the code from the record secret, tolerating one
// step of clock skew in either direction. The plain code is never stored.
type TOTPPolicy struct {
	opts totp.ValidateOpts
}

func NewTOTPPolicy(step time.Duration) *TOTPPolicy {
	return &TOTPPolicy{opts: totpOpts(step, 1)}
}

func (*TOTPPolicy) Name() string         { return "totp" }
func (*TOTPPolicy) Retain(string) string { return "" }
func (*TOTPPolicy) RevealCode() bool     { return false }

func (p *TOTPPolicy) Matches(rec *domain.PasscodeRecord, submitted string, now time.Time) (bool, error) {
	submitted = strings.TrimSpace(submitted)
	if len(submitted) != p.opts.Digits.Length() {
		return false, nil
	}
	return totp.ValidateCustom(submitted, rec.Secret, now, p.opts)
}
