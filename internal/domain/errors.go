package domain

import "errors"

// Storage error kinds. Adapters and repositories wrap the underlying driver
// error together with one of these, so callers match with errors.Is and can
// still unwrap to the cause.
var (
	// ErrConnection means the backend was unreachable or connection setup failed
	ErrConnection = errors.New("storage connection error")

	// ErrMisconfigured means required settings for the selected backend are absent
	ErrMisconfigured = errors.New("storage misconfigured")

	// ErrDecryption means a stored secret could not be decrypted
	ErrDecryption = errors.New("decryption failed")

	// ErrUnsupported means the backend structurally cannot perform the operation
	ErrUnsupported = errors.New("operation not supported by backend")

	// ErrInvalidInput means a key or record failed validation before any I/O
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSignature means a token or webhook signature did not verify
	// against the installation's key set
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnknownSigningKey means the signature names a key the stored key set lacks
	ErrUnknownSigningKey = errors.New("unknown signing key")

	ErrFailedSavingConfig   = errors.New("failed saving config")
	ErrFailedFetchingConfig = errors.New("failed fetching config")
	ErrFailedRemovingConfig = errors.New("failed removing config")

	// ErrTransactionMissing is returned when no transaction was recorded for a
	// payment intent. It is a normal outcome on first webhook delivery and must
	// not be confused with ErrFailedFetchingTransaction.
	ErrTransactionMissing        = errors.New("transaction missing")
	ErrFailedWritingTransaction  = errors.New("failed writing transaction")
	ErrFailedFetchingTransaction = errors.New("failed fetching transaction")
)
