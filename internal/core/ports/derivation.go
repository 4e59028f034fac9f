package ports

import "github.com/dashsync/walletsyncd/internal/core/domain"

// DerivationGateway derives keys and addresses of the BIP44 key tree.
type DerivationGateway interface {
	// DeriveExtendedPublicKey returns the serialized public key of the
	// account m/44'/coin'/account'.
	DeriveExtendedPublicKey(
		seed []byte, network domain.Network, accountIndex uint32,
	) (string, error)
	// DeriveAddress returns the P2PKH address at xpub/chain/index.
	DeriveAddress(
		xpub string, network domain.Network, chain domain.Chain, index uint32,
	) (string, error)
	// DerivationPath returns the full path of the address at the given
	// position.
	DerivationPath(
		network domain.Network, accountIndex uint32, chain domain.Chain, index uint32,
	) string
	// ValidateAddress tells whether the address is well formed for network.
	ValidateAddress(address string, network domain.Network) bool
}
