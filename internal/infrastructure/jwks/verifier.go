// Package jwks verifies OIDC ID tokens from any provider that publishes its
// signing keys as a JSON Web Key Set (RFC 7517).
//
// Keys are cached by kid and refreshed when stale or when an unknown kid
// shows up, at most once per minimum refresh interval. Concurrent refreshes collapse into one fetch, and every fetch is
// bounded by a timeout so a slow provider fails the login closed instead of
// piling up requests.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

var errKeyNotFound = errors.New("signing key not found")

// Verifier validates RS256 ID tokens for one audience.
type Verifier struct {
	jwksURL         string
	audience        string
	issuers         []string
	httpClient      *http.Client
	timeout         time.Duration
	refreshInterval time.Duration
	minRefresh      time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey // kid -> public key
	lastFetch time.Time

	sf singleflight.Group
}

// Option configures the Verifier.
type Option func(*Verifier)

// WithHTTPClient sets a custom HTTP client for fetching JWKS.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

// WithRefreshInterval sets how often cached keys are refreshed. Default: 1 hour.
func WithRefreshInterval(d time.Duration) Option {
	return func(v *Verifier) { v.refreshInterval = d }
}

// WithMinRefreshInterval sets how soon after a successful fetch an unknown
// kid may trigger another one. Default: 1 minute.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(v *Verifier) { v.minRefresh = d }
}

// WithIssuers restricts accepted "iss" values. Empty accepts any issuer.
func WithIssuers(issuers ...string) Option {
	return func(v *Verifier) { v.issuers = issuers }
}

// WithTimeout bounds each key fetch. Default: 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.timeout = d }
}

func NewVerifier(jwksURL, audience string, opts ...Option) *Verifier {
	v := &Verifier{
		jwksURL:         jwksURL,
		audience:        audience,
		httpClient:      http.DefaultClient,
		timeout:         5 * time.Second,
		refreshInterval: time.Hour,
		minRefresh:      time.Minute,
		keys:            make(map[string]*rsa.PublicKey),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Verify validates signature, audience, issuer, expiry and email_verified.
// Rejections wrap domain.ErrUnauthorized; a non-timeout transport failure
// while fetching keys wraps domain.ErrUnavailable.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	var fetchErr error
	parsed, err := jwt.ParseWithClaims(token, &idClaims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := v.key(ctx, kid)
		if err != nil && !errors.Is(err, errKeyNotFound) {
			fetchErr = err
		}
		return key, err
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if fetchErr != nil {
		return nil, classifyFetch(fetchErr)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid identity token: %v: %w", err, domain.ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(*idClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid identity token claims: %w", domain.ErrUnauthorized)
	}
	if !v.issuerAllowed(claims.Issuer) {
		return nil, fmt.Errorf("untrusted issuer %q: %w", claims.Issuer, domain.ErrUnauthorized)
	}
	if !truthy(claims.EmailVerified) || claims.Email == "" {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrUnauthorized)
	}
	return &domain.Identity{
		Subject:     claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarRef:   claims.Picture,
	}, nil
}

func (v *Verifier) issuerAllowed(iss string) bool {
	if len(v.issuers) == 0 {
		return true
	}
	for _, allowed := range v.issuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

// truthy accepts both the boolean and the string form some providers emit.
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

// key returns the RSA public key for kid, refreshing the set when needed.
func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, found := v.keys[kid]
	age := time.Since(v.lastFetch)
	fetched := !v.lastFetch.IsZero()
	v.mu.RUnlock()

	if found && age <= v.refreshInterval {
		return key, nil
	}
	if !found && fetched && age < v.minRefresh {
		return v.lookup(kid)
	}

	if err := v.refresh(ctx); err != nil {
		if found {
			slog.Warn("jwks refresh failed, using cached key", "kid", kid, "err", err)
			return key, nil
		}
		return nil, err
	}

	return v.lookup(kid)
}

func (v *Verifier) lookup(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	if kid == "" && len(v.keys) == 1 {
		for _, k := range v.keys {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: kid %q", errKeyNotFound, kid)
}

// refresh fetches the key set once for all concurrent callers.
func (v *Verifier) refresh(ctx context.Context) error {
	ch := v.sf.DoChan("jwks", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
		defer cancel()
		return nil, v.fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *Verifier) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("create jwks request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := jwk.rsaPublicKey()
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks has no usable RSA signing keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}

// classifyFetch fails closed on timeouts and reports other transport
// failures as an unavailable dependency.
func classifyFetch(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || (errors.As(err, &ne) && ne.Timeout()) {
		slog.Warn("jwks fetch timed out", "err", err)
		return fmt.Errorf("identity key fetch timed out: %w", domain.ErrUnauthorized)
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("identity key fetch: %v: %w", err, domain.ErrUnavailable)
	}
	return fmt.Errorf("identity key fetch: %v: %w", err, domain.ErrUnauthorized)
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k *jwkKey) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
