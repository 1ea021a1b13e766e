package saleor

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLeeway = 30 * time.Second

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// dashboardClaims are the claims Saleor puts in the token it hands the app's
// dashboard iframe
type dashboardClaims struct {
	App string `json:"app"`
	jwt.RegisteredClaims
}

type jwsHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	B64 *bool  `json:"b64"`
}

// Verifier checks RS256 tokens and webhook signatures issued by a Saleor
// instance. It holds no keys; each call gets the installation's stored set.
type Verifier struct {
	parser *jwt.Parser
}

// NewVerifier creates a verifier
func NewVerifier() ports.RequestVerifier {
	return &Verifier{
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(tokenLeeway),
		),
	}
}

// VerifyToken checks the signature and expiry of a dashboard token and that
// it was issued for appID
func (v *Verifier) VerifyToken(token, jwks, appID string) error {
	keys, err := parseJWKS(jwks)
	if err != nil {
		return err
	}

	claims := &dashboardClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return selectKey(keys, kid)
	})
	if err != nil {
		// keyfunc errors stay in the chain, so ErrUnknownSigningKey survives
		return fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}
	if !parsed.Valid {
		return fmt.Errorf("%w: invalid token", domain.ErrInvalidSignature)
	}
	if claims.App != appID {
		return fmt.Errorf("%w: token issued for app %q", domain.ErrInvalidSignature, claims.App)
	}
	return nil
}

// VerifySignature checks a detached JWS of the form <header>..<signature>.
// Saleor signs the raw body with "b64": false; an encoded payload is accepted too.
func (v *Verifier) VerifySignature(signature string, payload []byte, jwks string) error {
	protected, sig, ok := splitDetached(signature)
	if !ok {
		return fmt.Errorf("%w: malformed detached signature", domain.ErrInvalidSignature)
	}

	rawHeader, err := base64.RawURLEncoding.DecodeString(protected)
	if err != nil {
		return fmt.Errorf("%w: decode header: %w", domain.ErrInvalidSignature, err)
	}
	var header jwsHeader
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return fmt.Errorf("%w: decode header: %w", domain.ErrInvalidSignature, err)
	}
	if header.Alg != jwt.SigningMethodRS256.Alg() {
		return fmt.Errorf("%w: unexpected signing method %q", domain.ErrInvalidSignature, header.Alg)
	}

	signatureBytes, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("%w: decode signature: %w", domain.ErrInvalidSignature, err)
	}

	keys, err := parseJWKS(jwks)
	if err != nil {
		return err
	}
	key, err := selectKey(keys, header.Kid)
	if err != nil {
		return err
	}

	body := string(payload)
	if header.B64 == nil || *header.B64 {
		body = base64.RawURLEncoding.EncodeToString(payload)
	}
	if err := jwt.SigningMethodRS256.Verify(protected+"."+body, signatureBytes, key); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}
	return nil
}

func splitDetached(signature string) (protected, sig string, ok bool) {
	parts := strings.Split(signature, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// parseJWKS reads the RSA keys of a stored key set by kid. An empty or
// unreadable set counts as lacking every key.
func parseJWKS(raw string) (map[string]*rsa.PublicKey, error) {
	keys := make(map[string]*rsa.PublicKey)
	if strings.TrimSpace(raw) == "" {
		return keys, nil
	}

	var doc jwksDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w: decode jwks: %w", domain.ErrInvalidSignature, domain.ErrUnknownSigningKey, err)
	}

	for i, key := range doc.Keys {
		if !strings.EqualFold(key.Kty, "RSA") {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(key.N))
		if err != nil {
			return nil, fmt.Errorf("%w: decode jwks n: %w", domain.ErrInvalidSignature, err)
		}
		e, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(key.E))
		if err != nil {
			return nil, fmt.Errorf("%w: decode jwks e: %w", domain.ErrInvalidSignature, err)
		}
		exponent := new(big.Int).SetBytes(e)
		if !exponent.IsInt64() || exponent.Int64() <= 1 {
			return nil, fmt.Errorf("%w: invalid jwks exponent for key %q", domain.ErrInvalidSignature, key.Kid)
		}

		kid := strings.TrimSpace(key.Kid)
		if kid == "" {
			kid = fmt.Sprintf("key-%d", i)
		}
		keys[kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exponent.Int64())}
	}
	return keys, nil
}

// selectKey picks the key named by kid. Without a kid, a single-key set is used.
func selectKey(keys map[string]*rsa.PublicKey, kid string) (*rsa.PublicKey, error) {
	if kid != "" {
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: %w: kid %q", domain.ErrInvalidSignature, domain.ErrUnknownSigningKey, kid)
	}
	if len(keys) == 1 {
		for _, key := range keys {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: %w: token names no key", domain.ErrInvalidSignature, domain.ErrUnknownSigningKey)
}
