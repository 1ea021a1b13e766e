package saleor

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/saleor/saleortest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appID = "QXBwOjE="

func TestVerifier_VerifyToken(t *testing.T) {
	signer := saleortest.NewSigner(t, "k1")
	other := saleortest.NewSigner(t, "k1")
	jwks := signer.JWKS(t)
	v := NewVerifier()

	require.NoError(t, v.VerifyToken(signer.Token(t, appID, time.Minute), jwks, appID))

	tests := []struct {
		name       string
		token      string
		jwks       string
		unknownKey bool
	}{
		{"other app", signer.Token(t, "QXBwOjI=", time.Minute), jwks, false},
		{"expired", signer.Token(t, appID, -time.Hour), jwks, false},
		{"wrong key with same kid", other.Token(t, appID, time.Minute), jwks, false},
		{"garbage", "not-a-token", jwks, false},
		{"rotated kid", saleortest.NewSigner(t, "k2").Token(t, appID, time.Minute), jwks, true},
		{"empty key set", signer.Token(t, appID, time.Minute), `{"keys":[]}`, true},
		{"nothing stored", signer.Token(t, appID, time.Minute), "", true},
		{"unreadable key set", signer.Token(t, appID, time.Minute), "{", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.VerifyToken(tt.token, tt.jwks, appID)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature)
			if tt.unknownKey {
				assert.ErrorIs(t, err, domain.ErrUnknownSigningKey)
			} else {
				assert.NotErrorIs(t, err, domain.ErrUnknownSigningKey)
			}
		})
	}
}

func TestVerifier_VerifyTokenRejectsHMAC(t *testing.T) {
	signer := saleortest.NewSigner(t, "k1")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"app": appID, "exp": time.Now().Add(time.Minute).Unix()})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString([]byte(signer.JWKS(t)))
	require.NoError(t, err)

	assert.ErrorIs(t, NewVerifier().VerifyToken(signed, signer.JWKS(t), appID), domain.ErrInvalidSignature)
}

func TestVerifier_VerifySignature(t *testing.T) {
	signer := saleortest.NewSigner(t, "k1")
	jwks := signer.JWKS(t)
	payload := []byte(`{"app":{"id":"QXBwOjE="}}`)
	v := NewVerifier()

	signature := signer.Sign(t, payload)
	require.NoError(t, v.VerifySignature(signature, payload, jwks))

	t.Run("tampered payload", func(t *testing.T) {
		err := v.VerifySignature(signature, []byte(`{"app":{"id":"QXBwOjI="}}`), jwks)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		assert.NotErrorIs(t, err, domain.ErrUnknownSigningKey)
	})

	t.Run("rotated key", func(t *testing.T) {
		err := v.VerifySignature(saleortest.NewSigner(t, "k2").Sign(t, payload), payload, jwks)
		assert.ErrorIs(t, err, domain.ErrUnknownSigningKey)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, sig := range []string{"", "a.b.c", "onlyheader..", "..sig", strings.Replace(signature, "..", ".", 1)} {
			assert.ErrorIs(t, v.VerifySignature(sig, payload, jwks), domain.ErrInvalidSignature, sig)
		}
	})

	t.Run("other algorithm", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","kid":"k1"}`))
		assert.ErrorIs(t, v.VerifySignature(header+"..c2ln", payload, jwks), domain.ErrInvalidSignature)
	})
}
