package wallet

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/vulpemventures/go-bip39"
)

type NewMnemonicOpts struct {
	EntropySize int
}

func (o NewMnemonicOpts) validate() error {
	if o.EntropySize > 0 {
		if o.EntropySize < 128 || o.EntropySize > 256 || o.EntropySize%32 != 0 {
			return ErrInvalidEntropySize
		}
	}
	if o.EntropySize < 0 {
		return ErrInvalidEntropySize
	}
	return nil
}

// NewMnemonic returns a new mnemonic as a list of words
func NewMnemonic(opts NewMnemonicOpts) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.EntropySize == 0 {
		opts.EntropySize = 128
	}

	entropy, err := bip39.NewEntropy(opts.EntropySize)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Split(mnemonic, " "), nil
}

func IsMnemonicValid(mnemonic []string) bool {
	return bip39.IsMnemonicValid(strings.Join(mnemonic, " "))
}

// SeedFromMnemonic returns the BIP39 seed of the mnemonic. The password is
// the optional BIP39 extension word, not the encryption passphrase.
func SeedFromMnemonic(mnemonic []string, password string) ([]byte, error) {
	if !IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeed(strings.Join(mnemonic, " "), password), nil
}

// Fingerprint identifies a seed or a key without revealing it.
func Fingerprint(data []byte) string {
	return hex.EncodeToString(btcutil.Hash160(data))
}
