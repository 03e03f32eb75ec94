package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID  string
	timeout   time.Duration
	validator *idtoken.Validator
}

// Option configures a Verifier.
type Option func(*options)

type options struct {
	client *http.Client
}

// WithHTTPClient replaces the client used to fetch Google's certificates.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// NewVerifier builds a verifier whose certificate fetches are bounded by timeout.
// idtoken caches Google's certificates between calls.
func NewVerifier(ctx context.Context, clientID string, timeout time.Duration, opts ...Option) (*Verifier, error) {
	o := options{client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(&o)
	}
	v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(o.client))
	if err != nil {
		return nil, fmt.Errorf("create google token validator: %w", err)
	}
	return &Verifier{clientID: clientID, timeout: timeout, validator: v}, nil
}

// Verify validates the Google ID token and returns the extracted identity.
// Every rejection wraps domain.ErrUnauthorized; a non-timeout transport
// failure reaching Google wraps domain.ErrUnavailable.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	p, err := v.validator.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, classify(err)
	}
	email, _ := p.Claims["email"].(string)
	emailVerified, _ := p.Claims["email_verified"].(bool)
	name, _ := p.Claims["name"].(string)
	picture, _ := p.Claims["picture"].(string)
	if !emailVerified || email == "" {
		return nil, fmt.Errorf("google email not verified: %w", domain.ErrUnauthorized)
	}
	return &domain.Identity{
		Subject:     p.Subject,
		Email:       email,
		DisplayName: name,
		AvatarRef:   picture,
	}, nil
}

func classify(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		slog.Warn("google certificate fetch timed out", "err", err)
		return fmt.Errorf("google token verification timed out: %w", domain.ErrUnauthorized)
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("fetch google certificates: %v: %w", err, domain.ErrUnavailable)
	}
	return fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
}
