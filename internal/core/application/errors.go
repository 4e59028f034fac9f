package application

import "errors"

var (
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is not valid")
	// ErrMissingPassphrase ...
	ErrMissingPassphrase = errors.New("passphrase must not be empty")
	// ErrServiceStarted is returned when starting the service twice.
	ErrServiceStarted = errors.New("service already started")
	// ErrServiceStopped ...
	ErrServiceStopped = errors.New("service is stopped")
)
