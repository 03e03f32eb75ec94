// Package auth orchestrates the two login paths: a one-time passcode sent to
// a phone number, and a federated identity token. Both end in a session token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/application/passcode"
	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/JagadeshwaranK/MedPlusMart/internal/pkg/phone"
)

// SMSSender delivers the passcode message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// FederationVerifier validates an identity-provider credential. Failures wrap
// domain.ErrUnauthorized, or domain.ErrUnavailable when the provider is unreachable.
type FederationVerifier interface {
	Verify(ctx context.Context, credential string) (*domain.Identity, error)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	IssuePhone(phoneNumber string) (string, error)
	IssueFederated(ident *domain.Identity) (string, error)
}

// Recorder receives login outcomes for metrics.
type Recorder interface {
	PasscodeIssued()
	PasscodeVerified(outcome string)
	FederatedLogin(result string)
	TokenIssued(method string)
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	OTP         string `json:"otp" validate:"required"`
}

type FederatedRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// SendResult describes an issued passcode. Code is set only when the
// verification policy allows revealing it.
type SendResult struct {
	Code      string
	ExpiresAt time.Time
}

type PhoneSession struct {
	Token string
	User  domain.PhoneUser
}

type FederatedSession struct {
	Token string
	User  domain.Identity
}

// InvalidCodeError is returned for a wrong passcode that leaves the record live.
type InvalidCodeError struct {
	AttemptsLeft int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid passcode, %d attempts left", e.AttemptsLeft)
}

func (e *InvalidCodeError) Unwrap() error { return domain.ErrInvalidCode }

type Service interface {
	SendOTP(ctx context.Context, phoneNumber string) (*SendResult, error)
	VerifyOTP(ctx context.Context, phoneNumber, code string) (*PhoneSession, error)
	FederatedLogin(ctx context.Context, credential string) (*FederatedSession, error)
}

type service struct {
	passcodes  *passcode.Service
	sms        SMSSender
	federation FederationVerifier
	tokens     TokenIssuer
	metrics    Recorder
}

func NewService(
	passcodes *passcode.Service,
	sms SMSSender,
	federation FederationVerifier,
	tokens TokenIssuer,
	metrics Recorder,
) Service {
	return &service{
		passcodes:  passcodes,
		sms:        sms,
		federation: federation,
		tokens:     tokens,
		metrics:    metrics,
	}
}

func (s *service) SendOTP(ctx context.Context, phoneNumber string) (*SendResult, error) {
	identifier := phone.Normalize(phoneNumber)
	if identifier == "" {
		return nil, fmt.Errorf("phone number is required: %w", domain.ErrBadRequest)
	}

	issued, err := s.passcodes.Issue(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("issue passcode: %w", err)
	}

	msg := fmt.Sprintf("Your MedPlusMart verification code is %s. It expires in %d minutes.",
		issued.Code, int(s.passcodes.Validity()/time.Minute))
	if err := s.sms.SendSMS(ctx, identifier, msg); err != nil {
		slog.Error("passcode delivery failed", "phone", phone.Mask(identifier), "err", err)
		if derr := s.passcodes.Discard(ctx, identifier); derr != nil {
			slog.Warn("failed to discard undelivered passcode", "phone", phone.Mask(identifier), "err", derr)
		}
		return nil, fmt.Errorf("deliver passcode: %v: %w", err, domain.ErrUnavailable)
	}

	s.metrics.PasscodeIssued()
	slog.Info("passcode issued", "phone", phone.Mask(identifier), "policy", s.passcodes.Policy().Name())

	res := &SendResult{ExpiresAt: issued.ExpiresAt}
	if s.passcodes.Policy().RevealCode() {
		res.Code = issued.Code
	}
	return res, nil
}

func (s *service) VerifyOTP(ctx context.Context, phoneNumber, code string) (*PhoneSession, error) {
	identifier := phone.Normalize(phoneNumber)
	if identifier == "" || code == "" {
		return nil, fmt.Errorf("phone number and OTP are required: %w", domain.ErrBadRequest)
	}

	res, err := s.passcodes.Verify(ctx, identifier, code)
	if err != nil {
		return nil, fmt.Errorf("verify passcode: %w", err)
	}
	s.metrics.PasscodeVerified(res.Outcome.String())

	switch res.Outcome {
	case passcode.OutcomeValid:
	case passcode.OutcomeInvalid:
		return nil, &InvalidCodeError{AttemptsLeft: res.AttemptsLeft}
	default:
		return nil, fmt.Errorf("verify passcode: %w", res.Outcome.Err())
	}

	token, err := s.tokens.IssuePhone(identifier)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	s.metrics.TokenIssued("phone")
	return &PhoneSession{Token: token, User: domain.PhoneUser{PhoneNumber: identifier}}, nil
}

func (s *service) FederatedLogin(ctx context.Context, credential string) (*FederatedSession, error) {
	if credential == "" {
		return nil, fmt.Errorf("credential is required: %w", domain.ErrBadRequest)
	}

	ident, err := s.federation.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			s.metrics.FederatedLogin("error")
			slog.Error("identity provider unavailable", "err", err)
		} else {
			s.metrics.FederatedLogin("rejected")
			slog.Warn("federated login rejected", "err", err)
		}
		return nil, err
	}

	token, err := s.tokens.IssueFederated(ident)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	s.metrics.FederatedLogin("success")
	s.metrics.TokenIssued("federated")
	return &FederatedSession{Token: token, User: *ident}, nil
}
