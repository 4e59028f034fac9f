package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidNetwork is returned for an unknown network name.
	ErrInvalidNetwork = errors.New("invalid network")
	// ErrMissingFingerprint ...
	ErrMissingFingerprint = errors.New("missing seed fingerprint")
	// ErrMissingXpub ...
	ErrMissingXpub = errors.New("missing account extended public key")
	// ErrDuplicateWallet is returned when adding a wallet whose seed is
	// already stored for the same network.
	ErrDuplicateWallet = errors.New("wallet already exists for this seed and network")
	// ErrWalletNotFound ...
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrAccountNotFound ...
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount ...
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrAddressNotFound ...
	ErrAddressNotFound = errors.New("address not found")
	// ErrTransactionNotFound ...
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionAlreadyExists ...
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
	// ErrWatchOnlyWallet is returned for operations that need the seed.
	ErrWatchOnlyWallet = errors.New("operation not supported by watch-only wallet")
	// ErrNoContext is returned when an operation needs an active wallet and
	// account and none is selected.
	ErrNoContext = errors.New("no active wallet account selected")
	// ErrNotConnected is returned by network operations while offline.
	ErrNotConnected = errors.New("network not connected")
	// ErrInvalidState is returned for state transitions not allowed by the
	// sync controller.
	ErrInvalidState = errors.New("invalid sync state")
	// ErrInvalidAddress is returned when the network rejects an address as
	// malformed. Operations failing with it are never retried.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrNetwork marks transient network failures.
	ErrNetwork = errors.New("network failure")
	// ErrStorageFailure marks failures of the persistence layer.
	ErrStorageFailure = errors.New("storage failure")
)

// DerivationError is returned when an address cannot be derived from the
// account key. Discovery stops on the first one.
type DerivationError struct {
	Chain Chain
	Index uint32
	Err   error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf(
		"failed to derive %s address at index %d: %s", e.Chain, e.Index, e.Err,
	)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}

type WatchErrorKind int

const (
	WatchErrorUnknown WatchErrorKind = iota
	WatchErrorInvalidAddress
	WatchErrorNetwork
	WatchErrorStorage
)

func (k WatchErrorKind) String() string {
	switch k {
	case WatchErrorInvalidAddress:
		return "invalid address"
	case WatchErrorNetwork:
		return "network"
	case WatchErrorStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// WatchError is the failure of registering a single address with the
// network.
type WatchError struct {
	Address string
	Kind    WatchErrorKind
	Err     error
}

// NewWatchError classifies err by the sentinel it wraps.
func NewWatchError(address string, err error) *WatchError {
	kind := WatchErrorUnknown
	switch {
	case errors.Is(err, ErrInvalidAddress):
		kind = WatchErrorInvalidAddress
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrNotConnected):
		kind = WatchErrorNetwork
	case errors.Is(err, ErrStorageFailure):
		kind = WatchErrorStorage
	}
	return &WatchError{Address: address, Kind: kind, Err: err}
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("failed to watch address %s (%s): %s", e.Address, e.Kind, e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

// Recoverable tells whether retrying the registration may succeed.
func (e *WatchError) Recoverable() bool {
	return e.Kind != WatchErrorInvalidAddress
}

// TxLookupError is returned when checking whether a tx is stored keeps
// failing after every retry.
type TxLookupError struct {
	TxID     string
	Attempts int
	Err      error
}

func (e *TxLookupError) Error() string {
	return fmt.Sprintf(
		"failed to look up tx %s after %d attempts: %s", e.TxID, e.Attempts, e.Err,
	)
}

func (e *TxLookupError) Unwrap() error {
	return e.Err
}

// AggregateError collects the failures of a batch of updates.
type AggregateError struct {
	Op   string
	Errs []error
}

// NewAggregateError returns nil if errs is empty.
func NewAggregateError(op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{Op: op, Errs: errs}
}

func (e *AggregateError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf(
		"%s: %d error(s): %s", e.Op, len(e.Errs), strings.Join(msgs, "; "),
	)
}

func (e *AggregateError) Unwrap() []error {
	return e.Errs
}
