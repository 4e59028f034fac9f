package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrNullSeed ...
	ErrNullSeed = errors.New("seed must not be null")
	// ErrNullPassphrase ...
	ErrNullPassphrase = errors.New("passphrase must not be null")
	// ErrNullPlainText ...
	ErrNullPlainText = errors.New("text to encrypt must not be null")
	// ErrNullCypherText ...
	ErrNullCypherText = errors.New("cypher to decrypt must not be null")
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")
	// ErrNullXpub ...
	ErrNullXpub = errors.New("extended public key must not be null")
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrInvalidCypherText ...
	ErrInvalidCypherText = errors.New("cypher is malformed or not in base64 format")
	// ErrUnsupportedCypherVersion is returned for a cypher made with an
	// unknown layout.
	ErrUnsupportedCypherVersion = errors.New("unsupported cypher version")
	// ErrWrongPassphrase is returned when a cypher can't be opened, either
	// because the passphrase is wrong or because the cypher was altered.
	ErrWrongPassphrase = errors.New("wrong passphrase")
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New(
		"path must not start or end with a '/' and can optionally start with 'm/' for absolute paths",
	)
	// ErrInvalidDerivationPath ...
	ErrInvalidDerivationPath = errors.New("invalid derivation path")
	// ErrUnknownNetwork ...
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrXpubNetworkMismatch is returned for an extended key serialized for
	// another network.
	ErrXpubNetworkMismatch = errors.New("extended public key does not belong to network")
	// ErrOutOfRangeDerivationPathAccount ...
	ErrOutOfRangeDerivationPathAccount = fmt.Errorf(
		"account index must be in range [0, %d]", MaxHardenedValue,
	)
)
