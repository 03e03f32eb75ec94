package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/config"
	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/JagadeshwaranK/MedPlusMart/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the session token payload. Phone logins carry PhoneNumber;
// federated logins carry Email, Name and Picture.
type Claims struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens with a process-wide secret.
// Tokens are stateless: there is no revocation list and no refresh.
type Provider struct {
	secret []byte
	issuer string
	expiry time.Duration
	nowF   func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	expiry := cfg.JWTExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Provider{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		expiry: expiry,
		nowF:   time.Now,
	}, nil
}

// Expiry returns the lifetime of issued tokens.
func (p *Provider) Expiry() time.Duration { return p.expiry }

// IssuePhone mints a token for a verified phone number.
func (p *Provider) IssuePhone(phoneNumber string) (string, error) {
	return p.sign(phoneNumber, Claims{PhoneNumber: phoneNumber, Role: domain.RoleCustomer})
}

// IssueFederated mints a token for a verified federated identity.
func (p *Provider) IssueFederated(ident *domain.Identity) (string, error) {
	return p.sign(ident.Email, Claims{
		Email:   ident.Email,
		Name:    ident.DisplayName,
		Picture: ident.AvatarRef,
		Role:    domain.RoleCustomer,
	})
}

func (p *Provider) sign(subject string, claims Claims) (string, error) {
	now := p.nowF()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        id.New(),
		Subject:   subject,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the embedded claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.nowF),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
