// Package hdwallet implements the derivation gateway on top of the BIP32
// and BIP44 helpers of pkg/wallet.
package hdwallet

import (
	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

type derivationGateway struct{}

func NewDerivationGateway() ports.DerivationGateway {
	return derivationGateway{}
}

func (derivationGateway) DeriveExtendedPublicKey(
	seed []byte, network domain.Network, accountIndex uint32,
) (string, error) {
	params, err := wallet.NetworkParams(network.String())
	if err != nil {
		return "", err
	}
	return wallet.AccountExtendedPublicKey(wallet.ExtendedKeyOpts{
		Seed:    seed,
		Network: params,
		Account: accountIndex,
	})
}

func (derivationGateway) DeriveAddress(
	xpub string, network domain.Network, chain domain.Chain, index uint32,
) (string, error) {
	params, err := wallet.NetworkParams(network.String())
	if err != nil {
		return "", err
	}
	return wallet.DeriveAddress(wallet.DeriveAddressOpts{
		Xpub:    xpub,
		Network: params,
		Change:  uint32(chain),
		Index:   index,
	})
}

func (derivationGateway) DerivationPath(
	network domain.Network, accountIndex uint32, chain domain.Chain, index uint32,
) string {
	params, err := wallet.NetworkParams(network.String())
	if err != nil {
		log.WithError(err).Warnf("unknown network %s", network)
		return ""
	}
	return wallet.AddressPath(
		params.HDCoinType, accountIndex, uint32(chain), index,
	).String()
}

func (derivationGateway) ValidateAddress(address string, network domain.Network) bool {
	params, err := wallet.NetworkParams(network.String())
	if err != nil {
		return false
	}
	return wallet.ValidateAddress(address, params)
}
