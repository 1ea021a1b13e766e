package application

import "errors"

var (
	// ErrNotInstalled means no auth data is stored for the Saleor API URL
	ErrNotInstalled = errors.New("app is not installed")

	// ErrConfigNotFound means the referenced config does not exist in the installation
	ErrConfigNotFound = errors.New("config not found")

	// ErrTokenVerification means the instance did not confirm the app token
	ErrTokenVerification = errors.New("app token verification failed")

	// ErrRequestVerification means a dashboard token or webhook signature was
	// missing or did not verify against the installation's key set
	ErrRequestVerification = errors.New("request verification failed")

	// ErrNoCustomerEmail means a paid order cannot be attributed to a credits account
	ErrNoCustomerEmail = errors.New("order has no customer email")
)
