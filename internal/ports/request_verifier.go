package ports

// RequestVerifier checks Saleor-issued credentials against an installation's
// JSON Web Key Set. Both methods wrap domain.ErrUnknownSigningKey when the
// set lacks the signing key, so callers can refresh it and retry.
type RequestVerifier interface {
	// VerifyToken checks a dashboard session token issued for appID
	VerifyToken(token, jwks, appID string) error

	// VerifySignature checks the detached JWS sent in the Saleor-Signature header
	VerifySignature(signature string, payload []byte, jwks string) error
}
