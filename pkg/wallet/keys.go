package wallet

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// ExtendedKeyOpts is the struct given to AccountExtendedPublicKey
type ExtendedKeyOpts struct {
	Seed    []byte
	Network *chaincfg.Params
	Account uint32
}

func (o ExtendedKeyOpts) validate() error {
	if len(o.Seed) <= 0 {
		return ErrNullSeed
	}
	if o.Network == nil {
		return ErrUnknownNetwork
	}
	if o.Account > MaxHardenedValue {
		return ErrOutOfRangeDerivationPathAccount
	}
	return nil
}

// AccountExtendedPublicKey returns the extended public key in base58 format
// of the BIP44 account derived from the seed.
func AccountExtendedPublicKey(opts ExtendedKeyOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	hdNode, err := hdkeychain.NewMaster(opts.Seed, opts.Network)
	if err != nil {
		return "", err
	}
	for _, step := range AccountPath(opts.Network.HDCoinType, opts.Account) {
		hdNode, err = hdNode.Derive(step)
		if err != nil {
			return "", err
		}
	}

	xpub, err := hdNode.Neuter()
	if err != nil {
		return "", err
	}
	return xpub.String(), nil
}

// DeriveAddressOpts is the struct given to DeriveAddress
type DeriveAddressOpts struct {
	Xpub    string
	Network *chaincfg.Params
	Change  uint32
	Index   uint32
}

func (o DeriveAddressOpts) validate() error {
	if len(o.Xpub) <= 0 {
		return ErrNullXpub
	}
	if o.Network == nil {
		return ErrUnknownNetwork
	}
	if o.Change > 1 || o.Index >= hdkeychain.HardenedKeyStart {
		return ErrInvalidDerivationPath
	}
	return nil
}

// DeriveAddress returns the P2PKH address at xpub/change/index.
func DeriveAddress(opts DeriveAddressOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	decoded := base58.Decode(opts.Xpub)
	if len(decoded) < 4 ||
		!bytes.Equal(decoded[:4], opts.Network.HDPublicKeyID[:]) {
		return "", ErrXpubNetworkMismatch
	}

	hdNode, err := hdkeychain.NewKeyFromString(opts.Xpub)
	if err != nil {
		return "", err
	}
	for _, step := range []uint32{opts.Change, opts.Index} {
		hdNode, err = hdNode.Derive(step)
		if err != nil {
			return "", err
		}
	}

	pubkey, err := hdNode.ECPubKey()
	if err != nil {
		return "", err
	}
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(pubkey.SerializeCompressed()), opts.Network,
	)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// ValidateAddress tells whether addr is a well formed P2PKH or P2SH address
// of the given network.
func ValidateAddress(addr string, network *chaincfg.Params) bool {
	if network == nil || len(addr) == 0 {
		return false
	}
	decoded, err := btcutil.DecodeAddress(addr, network)
	if err != nil {
		return false
	}
	switch decoded.(type) {
	case *btcutil.AddressPubKeyHash, *btcutil.AddressScriptHash:
		return decoded.IsForNet(network)
	default:
		return false
	}
}
