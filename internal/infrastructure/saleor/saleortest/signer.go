// Package saleortest issues tokens and webhook signatures the way a Saleor
// instance does, for tests
package saleortest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Signer holds an RS256 key published under KeyID
type Signer struct {
	KeyID string
	key   *rsa.PrivateKey
}

// NewSigner generates a fresh key
func NewSigner(t testing.TB, keyID string) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &Signer{KeyID: keyID, key: key}
}

// JWKS returns the public key set as stored in AuthData.JWKS
func (s *Signer) JWKS(t testing.TB) string {
	t.Helper()
	pub := s.key.PublicKey
	raw, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kid": s.KeyID,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
	require.NoError(t, err)
	return string(raw)
}

// Token issues a dashboard token for appID expiring after ttl
func (s *Signer) Token(t testing.TB, appID string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"app": appID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	token.Header["kid"] = s.KeyID
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

// Sign returns the detached, unencoded-payload JWS sent as Saleor-Signature
func (s *Signer) Sign(t testing.TB, payload []byte) string {
	t.Helper()
	header, err := json.Marshal(map[string]any{
		"alg":  "RS256",
		"b64":  false,
		"crit": []string{"b64"},
		"kid":  s.KeyID,
	})
	require.NoError(t, err)
	protected := base64.RawURLEncoding.EncodeToString(header)

	sig, err := jwt.SigningMethodRS256.Sign(protected+"."+string(payload), s.key)
	require.NoError(t, err)
	return protected + ".." + base64.RawURLEncoding.EncodeToString(sig)
}
