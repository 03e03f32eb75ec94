// Package passcode issues one-time passcodes and adjudicates submitted codes.
//
// Every identifier has at most one live record. Issue replaces it; Verify
// consumes it on success, expiry or attempt exhaustion. The attempt counter
// is incremented by the store itself, so processes sharing a store agree on
// it. Within a process both operations also run under a per-identifier lock,
// while different identifiers proceed independently.
package passcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultValidity    = 5 * time.Minute
	DefaultMaxAttempts = 3
	secretSize         = 20
)

// Store is the authoritative identifier -> record mapping.
// Get returns a domain.ErrNotFound-wrapped error when no record exists and
// never checks expiry itself. Delete is idempotent.
//
// AddAttempt increments the stored attempt counter atomically in the store
// itself and returns the record after the increment, so processes sharing a
// store never lose an attempt. A missing record yields domain.ErrNotFound and
// is not created.
type Store interface {
	Put(ctx context.Context, identifier string, rec *domain.PasscodeRecord) error
	Get(ctx context.Context, identifier string) (*domain.PasscodeRecord, error)
	Delete(ctx context.Context, identifier string) error
	AddAttempt(ctx context.Context, identifier string) (*domain.PasscodeRecord, error)
}

// Outcome is the result of a verification attempt.
type Outcome int

const (
	OutcomeNotFound Outcome = iota + 1
	OutcomeExpired
	OutcomeAttemptsExceeded
	OutcomeInvalid
	OutcomeValid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomeAttemptsExceeded:
		return "attempts_exceeded"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Err maps a non-valid outcome to its domain sentinel. Valid maps to nil.
func (o Outcome) Err() error {
	switch o {
	case OutcomeNotFound:
		return domain.ErrNotFound
	case OutcomeExpired:
		return domain.ErrExpired
	case OutcomeAttemptsExceeded:
		return domain.ErrAttemptsExceeded
	case OutcomeInvalid:
		return domain.ErrInvalidCode
	case OutcomeValid:
		return nil
	default:
		return errors.New("unknown passcode outcome")
	}
}

// Result is returned by Verify. AttemptsLeft is meaningful only for OutcomeInvalid.
type Result struct {
	Outcome      Outcome
	AttemptsLeft int
}

// Issued is returned by Issue.
type Issued struct {
	Code      string
	ExpiresAt time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithValidity sets how long an issued code stays valid.
func WithValidity(d time.Duration) Option {
	return func(s *Service) { s.validity = d }
}

// WithMaxAttempts sets the verification attempt ceiling per record.
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = n }
}

// Service is the passcode generator and verifier.
type Service struct {
	store       Store
	policy      VerificationPolicy
	locks       *keyLock
	now         func() time.Time
	validity    time.Duration
	maxAttempts int
	issuer      string
}

func NewService(store Store, policy VerificationPolicy, issuer string, opts ...Option) *Service {
	s := &Service{
		store:       store,
		policy:      policy,
		locks:       newKeyLock(),
		now:         time.Now,
		validity:    DefaultValidity,
		maxAttempts: DefaultMaxAttempts,
		issuer:      issuer,
	}
	if s.issuer == "" {
		s.issuer = "MedPlusMart"
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Policy returns the verification policy the service was built with.
func (s *Service) Policy() VerificationPolicy { return s.policy }

// Validity returns the lifetime of an issued code.
func (s *Service) Validity() time.Duration { return s.validity }

// Issue creates a fresh record for identifier, replacing any prior one.
func (s *Service) Issue(ctx context.Context, identifier string) (*Issued, error) {
	if identifier == "" {
		return nil, fmt.Errorf("identifier required: %w", domain.ErrBadRequest)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: identifier,
		Period:      uint(s.validity / time.Second),
		SecretSize:  secretSize,
	})
	if err != nil {
		return nil, fmt.Errorf("generate passcode secret: %w", err)
	}

	unlock := s.locks.Lock(identifier)
	defer unlock()

	now := s.now()
	code, err := totp.GenerateCodeCustom(key.Secret(), now, totpOpts(s.validity, 0))
	if err != nil {
		return nil, fmt.Errorf("derive passcode: %w", err)
	}
	rec := &domain.PasscodeRecord{
		Identifier: identifier,
		Secret:     key.Secret(),
		Code:       s.policy.Retain(code),
		ExpiresAt:  now.Add(s.validity),
		Attempts:   0,
		CreatedAt:  now,
	}
	if err := s.store.Put(ctx, identifier, rec); err != nil {
		return nil, fmt.Errorf("store passcode: %w", err)
	}
	return &Issued{Code: code, ExpiresAt: rec.ExpiresAt}, nil
}

// Verify adjudicates submitted against the live record for identifier.
//
// Precedence when several conditions hold: expiry, then attempt exhaustion,
// then code mismatch. The attempt is counted in the store before the record
// is judged; the counter before this attempt decides exhaustion. The error
// return is reserved for store failures.
func (s *Service) Verify(ctx context.Context, identifier, submitted string) (Result, error) {
	unlock := s.locks.Lock(identifier)
	defer unlock()

	rec, err := s.store.AddAttempt(ctx, identifier)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("record attempt: %w", err)
	}

	now := s.now()
	if rec.Expired(now) {
		return s.terminal(ctx, identifier, OutcomeExpired)
	}
	if rec.Attempts > s.maxAttempts {
		return s.terminal(ctx, identifier, OutcomeAttemptsExceeded)
	}

	ok, err := s.policy.Matches(rec, submitted, now)
	if err != nil {
		return Result{}, fmt.Errorf("compare passcode: %w", err)
	}
	if ok {
		return s.terminal(ctx, identifier, OutcomeValid)
	}
	return Result{Outcome: OutcomeInvalid, AttemptsLeft: s.maxAttempts - rec.Attempts}, nil
}

// Discard removes any live record for identifier.
func (s *Service) Discard(ctx context.Context, identifier string) error {
	unlock := s.locks.Lock(identifier)
	defer unlock()
	return s.store.Delete(ctx, identifier)
}

func (s *Service) terminal(ctx context.Context, identifier string, o Outcome) (Result, error) {
	if err := s.store.Delete(ctx, identifier); err != nil {
		return Result{}, fmt.Errorf("consume passcode: %w", err)
	}
	return Result{Outcome: o}, nil
}
