package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/application/passcode"
	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/memory"
	"github.com/JagadeshwaranK/MedPlusMart/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockFederation struct{ mock.Mock }

func (m *mockFederation) Verify(ctx context.Context, credential string) (*domain.Identity, error) {
	args := m.Called(ctx, credential)
	if id, _ := args.Get(0).(*domain.Identity); id != nil {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) IssuePhone(phoneNumber string) (string, error) {
	args := m.Called(phoneNumber)
	return args.String(0), args.Error(1)
}
func (m *mockTokens) IssueFederated(ident *domain.Identity) (string, error) {
	args := m.Called(ident)
	return args.String(0), args.Error(1)
}

// --- helpers ---

type fixture struct {
	svc    Service
	store  *memory.PasscodeStore
	sms    *mockSMS
	fed    *mockFederation
	tokens *mockTokens
	now    time.Time
}

func newFixture(t *testing.T, policy passcode.VerificationPolicy) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewPasscodeStore(0),
		sms:    &mockSMS{},
		fed:    &mockFederation{},
		tokens: &mockTokens{},
		now:    time.Unix(1_800_000_000, 0).UTC(),
	}
	codes := passcode.NewService(f.store, policy, "test", passcode.WithClock(func() time.Time { return f.now }))
	f.svc = NewService(codes, f.sms, f.fed, f.tokens, metrics.New(nil, false))
	return f
}

const phoneNumber = "+15551230000"

// --- SendOTP ---

func TestSendOTP_RevealsCodeUnderPlainPolicy(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	f.sms.On("SendSMS", mock.Anything, phoneNumber, mock.MatchedBy(func(msg string) bool {
		return len(msg) > 0
	})).Return(nil)

	res, err := f.svc.SendOTP(context.Background(), "+1 (555) 123-0000")
	require.NoError(t, err)
	assert.Len(t, res.Code, 6)
	assert.Equal(t, f.now.Add(5*time.Minute), res.ExpiresAt)
	assert.Equal(t, 1, f.store.Len())
	f.sms.AssertExpectations(t)
}

func TestSendOTP_HidesCodeUnderTOTPPolicy(t *testing.T) {
	f := newFixture(t, passcode.NewTOTPPolicy(passcode.DefaultValidity))
	f.sms.On("SendSMS", mock.Anything, phoneNumber, mock.Anything).Return(nil)

	res, err := f.svc.SendOTP(context.Background(), phoneNumber)
	require.NoError(t, err)
	assert.Empty(t, res.Code)
}

func TestSendOTP_MissingPhone(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	_, err := f.svc.SendOTP(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendOTP_DeliveryFailureDiscardsRecord(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	f.sms.On("SendSMS", mock.Anything, phoneNumber, mock.Anything).Return(errors.New("sns down"))

	_, err := f.svc.SendOTP(context.Background(), phoneNumber)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	assert.Equal(t, 0, f.store.Len())
}

// --- VerifyOTP ---

func sendCode(t *testing.T, f *fixture) string {
	t.Helper()
	f.sms.On("SendSMS", mock.Anything, phoneNumber, mock.Anything).Return(nil)
	res, err := f.svc.SendOTP(context.Background(), phoneNumber)
	require.NoError(t, err)
	return res.Code
}

func TestVerifyOTP_Valid(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	code := sendCode(t, f)
	f.tokens.On("IssuePhone", phoneNumber).Return("signed.jwt", nil)

	sess, err := f.svc.VerifyOTP(context.Background(), phoneNumber, code)
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", sess.Token)
	assert.Equal(t, phoneNumber, sess.User.PhoneNumber)
	f.tokens.AssertExpectations(t)
}

func TestVerifyOTP_InvalidCarriesAttemptsLeft(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	code := sendCode(t, f)
	bad := "000000"
	if code == bad {
		bad = "111111"
	}

	_, err := f.svc.VerifyOTP(context.Background(), phoneNumber, bad)
	var invalid *InvalidCodeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 2, invalid.AttemptsLeft)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	f.tokens.AssertNotCalled(t, "IssuePhone", mock.Anything)
}

func TestVerifyOTP_Outcomes(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	ctx := context.Background()

	_, err := f.svc.VerifyOTP(ctx, phoneNumber, "123456")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	code := sendCode(t, f)
	f.now = f.now.Add(6 * time.Minute)
	_, err = f.svc.VerifyOTP(ctx, phoneNumber, code)
	assert.True(t, errors.Is(err, domain.ErrExpired))

	_, err = f.svc.VerifyOTP(ctx, phoneNumber, "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerifyOTP_Exhausted(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	code := sendCode(t, f)
	for i := 0; i < 3; i++ {
		_, _ = f.svc.VerifyOTP(context.Background(), phoneNumber, "wrong")
	}
	_, err := f.svc.VerifyOTP(context.Background(), phoneNumber, code)
	assert.True(t, errors.Is(err, domain.ErrAttemptsExceeded))
}

// --- FederatedLogin ---

func TestFederatedLogin_Success(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	ident := &domain.Identity{Subject: "42", Email: "ann@example.com", DisplayName: "Ann", AvatarRef: "https://img/ann"}
	f.fed.On("Verify", mock.Anything, "cred").Return(ident, nil)
	f.tokens.On("IssueFederated", ident).Return("fed.jwt", nil)

	sess, err := f.svc.FederatedLogin(context.Background(), "cred")
	require.NoError(t, err)
	assert.Equal(t, "fed.jwt", sess.Token)
	assert.Equal(t, "ann@example.com", sess.User.Email)
}

func TestFederatedLogin_Rejected(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	f.fed.On("Verify", mock.Anything, "cred").Return(nil, domain.ErrUnauthorized)

	_, err := f.svc.FederatedLogin(context.Background(), "cred")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.tokens.AssertNotCalled(t, "IssueFederated", mock.Anything)
}

func TestFederatedLogin_MissingCredential(t *testing.T) {
	f := newFixture(t, passcode.NewPlainPolicy())
	_, err := f.svc.FederatedLogin(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
