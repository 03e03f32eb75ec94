package google

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify_InvalidTokenIsUnauthorized(t *testing.T) {
	err := classify(errors.New("idtoken: audience provided does not match aud claim in the JWT"))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestClassify_TimeoutFailsClosed(t *testing.T) {
	err := classify(fmt.Errorf("fetch certs: %w", context.DeadlineExceeded))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	err = classify(&url.Error{Op: "Get", URL: "https://www.googleapis.com/oauth2/v3/certs", Err: timeoutErr{}})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestClassify_TransportFailureIsUnavailable(t *testing.T) {
	err := classify(&url.Error{Op: "Get", URL: "https://www.googleapis.com/oauth2/v3/certs", Err: errors.New("connection refused")})
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	assert.False(t, errors.Is(err, domain.ErrUnauthorized))
}

const (
	testClientID = "client-123.apps.googleusercontent.com"
	testKid      = "google-key-1"
)

// certsTransport answers every request with a JWKS holding key, the way
// Google publishes its signing certificates.
type certsTransport struct {
	key      *rsa.PublicKey
	requests atomic.Int32
}

func (c *certsTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.requests.Add(1)
	body, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": testKid,
			"n":   base64.RawURLEncoding.EncodeToString(c.key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(c.key.E)).Bytes()),
		}},
	})
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    r,
	}, nil
}

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey, *certsTransport) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tr := &certsTransport{key: &key.PublicKey}
	v, err := NewVerifier(context.Background(), testClientID, 5*time.Second,
		WithHTTPClient(&http.Client{Transport: tr}))
	require.NoError(t, err)
	return v, key, tr
}

func signGoogle(t *testing.T, claims jwt.MapClaims, key *rsa.PrivateKey) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func googleClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testClientID,
		"sub":            "110169484474386276334",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
		"email":          "ann@example.com",
		"email_verified": true,
		"name":           "Ann Example",
		"picture":        "https://lh3.googleusercontent.com/a/ann",
	}
}

func TestVerify_ValidTokenMapsProfile(t *testing.T) {
	v, key, tr := newTestVerifier(t)

	ident, err := v.Verify(context.Background(), signGoogle(t, googleClaims(), key))
	require.NoError(t, err)
	assert.Equal(t, "110169484474386276334", ident.Subject)
	assert.Equal(t, "ann@example.com", ident.Email)
	assert.Equal(t, "Ann Example", ident.DisplayName)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/ann", ident.AvatarRef)
	assert.GreaterOrEqual(t, tr.requests.Load(), int32(1), "certificates come from the injected client")
}

func TestVerify_MissingProfileFieldsAreEmpty(t *testing.T) {
	v, key, _ := newTestVerifier(t)
	claims := googleClaims()
	delete(claims, "name")
	delete(claims, "picture")

	ident, err := v.Verify(context.Background(), signGoogle(t, claims, key))
	require.NoError(t, err)
	assert.Empty(t, ident.DisplayName)
	assert.Empty(t, ident.AvatarRef)
}

func TestVerify_RejectionsAreUnauthorized(t *testing.T) {
	v, key, _ := newTestVerifier(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	unverified := googleClaims()
	unverified["email_verified"] = false
	noEmail := googleClaims()
	delete(noEmail, "email")
	wrongAud := googleClaims()
	wrongAud["aud"] = "someone-else.apps.googleusercontent.com"
	expired := googleClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	cases := map[string]string{
		"email not verified": signGoogle(t, unverified, key),
		"missing email":      signGoogle(t, noEmail, key),
		"wrong audience":     signGoogle(t, wrongAud, key),
		"expired":            signGoogle(t, expired, key),
		"bad signature":      signGoogle(t, googleClaims(), otherKey),
		"malformed":          "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			ident, err := v.Verify(context.Background(), token)
			assert.Nil(t, ident)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnauthorized), "got %v", err)
		})
	}
}
