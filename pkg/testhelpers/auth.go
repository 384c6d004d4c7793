// Package testhelpers provides an RSA backed JWKS server and token signer for auth tests.
package testhelpers

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const keyID = "test-key"

// Issuer signs tokens with a throwaway RSA key and serves its public half as a JWKS.
type Issuer struct {
	URL      string
	Audience string

	key    *rsa.PrivateKey
	server *httptest.Server
}

// NewIssuer starts the JWKS server. It is closed when the test ends.
func NewIssuer(t testing.TB, audience string) *Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	iss := &Issuer{Audience: audience, key: key}
	iss.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(iss.JWKS())
	}))
	iss.URL = iss.server.URL
	t.Cleanup(iss.server.Close)
	return iss
}

// JWKSURL is the key set endpoint.
func (i *Issuer) JWKSURL() string {
	return i.server.URL + "/jwks"
}

// JWKS returns the public key set document.
func (i *Issuer) JWKS() map[string]any {
	pub := i.key.PublicKey
	return map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": keyID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
}

// Keyfunc resolves the signing key without going through HTTP.
func (i *Issuer) Keyfunc(*jwt.Token) (any, error) {
	return &i.key.PublicKey, nil
}

// Token signs a token for subject with a one hour expiry. extra claims override the defaults.
func (i *Issuer) Token(t testing.TB, subject string, extra map[string]any) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": i.URL,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if i.Audience != "" {
		claims["aud"] = i.Audience
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(i.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
