package wallet

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

const (
	// CoinTypeMainnet is the BIP44 coin type registered for Dash.
	CoinTypeMainnet = 5
	// CoinTypeTestnet is shared by every test network.
	CoinTypeTestnet = 1
)

// Dash networks share the BIP32 version bytes of Bitcoin, so extended keys
// serialize as xprv/xpub on mainnet and tprv/tpub elsewhere.
var (
	MainNetParams = chaincfg.Params{
		Name:             "mainnet",
		Net:              wire.BitcoinNet(0xbd6b0cbf),
		DefaultPort:      "9999",
		PubKeyHashAddrID: 0x4c,
		ScriptHashAddrID: 0x10,
		PrivateKeyID:     0xcc,
		HDPrivateKeyID:   [4]byte{0x04, 0x88, 0xad, 0xe4},
		HDPublicKeyID:    [4]byte{0x04, 0x88, 0xb2, 0x1e},
		HDCoinType:       CoinTypeMainnet,
	}

	TestNetParams = chaincfg.Params{
		Name:             "testnet",
		Net:              wire.BitcoinNet(0xffcae2ce),
		DefaultPort:      "19999",
		PubKeyHashAddrID: 0x8c,
		ScriptHashAddrID: 0x13,
		PrivateKeyID:     0xef,
		HDPrivateKeyID:   [4]byte{0x04, 0x35, 0x83, 0x94},
		HDPublicKeyID:    [4]byte{0x04, 0x35, 0x87, 0xcf},
		HDCoinType:       CoinTypeTestnet,
	}

	DevNetParams = chaincfg.Params{
		Name:             "devnet",
		Net:              wire.BitcoinNet(0xceffcae2),
		DefaultPort:      "19799",
		PubKeyHashAddrID: 0x8c,
		ScriptHashAddrID: 0x13,
		PrivateKeyID:     0xef,
		HDPrivateKeyID:   [4]byte{0x04, 0x35, 0x83, 0x94},
		HDPublicKeyID:    [4]byte{0x04, 0x35, 0x87, 0xcf},
		HDCoinType:       CoinTypeTestnet,
	}

	RegTestParams = chaincfg.Params{
		Name:             "regtest",
		Net:              wire.BitcoinNet(0xdcb7c1fc),
		DefaultPort:      "19899",
		PubKeyHashAddrID: 0x8c,
		ScriptHashAddrID: 0x13,
		PrivateKeyID:     0xef,
		HDPrivateKeyID:   [4]byte{0x04, 0x35, 0x83, 0x94},
		HDPublicKeyID:    [4]byte{0x04, 0x35, 0x87, 0xcf},
		HDCoinType:       CoinTypeTestnet,
	}
)

var networks = map[string]*chaincfg.Params{
	MainNetParams.Name: &MainNetParams,
	TestNetParams.Name: &TestNetParams,
	DevNetParams.Name:  &DevNetParams,
	RegTestParams.Name: &RegTestParams,
}

// NetworkParams returns the chain params of the network with the given name.
func NetworkParams(name string) (*chaincfg.Params, error) {
	params, ok := networks[name]
	if !ok {
		return nil, ErrUnknownNetwork
	}
	return params, nil
}
