package wallet

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

var testMnemonic = strings.Split(
	"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	" ",
)

func testXpub(t *testing.T, network *chaincfg.Params, account uint32) string {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	xpub, err := AccountExtendedPublicKey(ExtendedKeyOpts{
		Seed:    seed,
		Network: network,
		Account: account,
	})
	require.NoError(t, err)
	return xpub
}

func TestAccountExtendedPublicKey(t *testing.T) {
	mainnetXpub := testXpub(t, &MainNetParams, 0)
	require.True(t, strings.HasPrefix(mainnetXpub, "xpub"))

	testnetXpub := testXpub(t, &TestNetParams, 0)
	require.True(t, strings.HasPrefix(testnetXpub, "tpub"))

	require.Equal(t, mainnetXpub, testXpub(t, &MainNetParams, 0))
	require.NotEqual(t, mainnetXpub, testXpub(t, &MainNetParams, 1))
}

func TestFailingAccountExtendedPublicKey(t *testing.T) {
	tests := []struct {
		opts ExtendedKeyOpts
		err  error
	}{
		{ExtendedKeyOpts{Network: &MainNetParams}, ErrNullSeed},
		{ExtendedKeyOpts{Seed: []byte{1}}, ErrUnknownNetwork},
		{
			ExtendedKeyOpts{
				Seed: make([]byte, 32), Network: &MainNetParams,
				Account: MaxHardenedValue + 1,
			},
			ErrOutOfRangeDerivationPathAccount,
		},
	}
	for _, tt := range tests {
		_, err := AccountExtendedPublicKey(tt.opts)
		require.Equal(t, tt.err, err)
	}
}

func TestDeriveAddress(t *testing.T) {
	tests := []struct {
		name    string
		network *chaincfg.Params
		prefix  string
	}{
		{"mainnet", &MainNetParams, "X"},
		{"testnet", &TestNetParams, "y"},
		{"regtest", &RegTestParams, "y"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			xpub := testXpub(t, tt.network, 0)

			seen := make(map[string]struct{})
			for _, change := range []uint32{0, 1} {
				for i := uint32(0); i < 5; i++ {
					addr, err := DeriveAddress(DeriveAddressOpts{
						Xpub: xpub, Network: tt.network, Change: change, Index: i,
					})
					require.NoError(t, err)
					require.True(t, strings.HasPrefix(addr, tt.prefix))
					require.True(t, ValidateAddress(addr, tt.network))

					again, err := DeriveAddress(DeriveAddressOpts{
						Xpub: xpub, Network: tt.network, Change: change, Index: i,
					})
					require.NoError(t, err)
					require.Equal(t, addr, again)

					_, dup := seen[addr]
					require.False(t, dup)
					seen[addr] = struct{}{}
				}
			}
		})
	}
}

func TestFailingDeriveAddress(t *testing.T) {
	xpub := testXpub(t, &MainNetParams, 0)

	tests := []struct {
		name string
		opts DeriveAddressOpts
		err  error
	}{
		{
			"missing xpub",
			DeriveAddressOpts{Network: &MainNetParams},
			ErrNullXpub,
		},
		{
			"invalid change",
			DeriveAddressOpts{Xpub: xpub, Network: &MainNetParams, Change: 2},
			ErrInvalidDerivationPath,
		},
		{
			"hardened index",
			DeriveAddressOpts{Xpub: xpub, Network: &MainNetParams, Index: 1 << 31},
			ErrInvalidDerivationPath,
		},
		{
			"network mismatch",
			DeriveAddressOpts{Xpub: xpub, Network: &TestNetParams},
			ErrXpubNetworkMismatch,
		},
	}
	for _, tt := range tests {
		_, err := DeriveAddress(tt.opts)
		require.Equal(t, tt.err, err, tt.name)
	}
}

func TestValidateAddress(t *testing.T) {
	mainnetAddr, err := DeriveAddress(DeriveAddressOpts{
		Xpub: testXpub(t, &MainNetParams, 0), Network: &MainNetParams,
	})
	require.NoError(t, err)

	require.True(t, ValidateAddress(mainnetAddr, &MainNetParams))
	require.False(t, ValidateAddress(mainnetAddr, &TestNetParams))
	require.False(t, ValidateAddress("", &MainNetParams))
	require.False(t, ValidateAddress("notanaddress", &MainNetParams))
	require.False(t, ValidateAddress(mainnetAddr, nil))
}

func TestMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic(NewMnemonicOpts{})
	require.NoError(t, err)
	require.Len(t, mnemonic, 12)
	require.True(t, IsMnemonicValid(mnemonic))

	mnemonic, err = NewMnemonic(NewMnemonicOpts{EntropySize: 256})
	require.NoError(t, err)
	require.Len(t, mnemonic, 24)

	_, err = NewMnemonic(NewMnemonicOpts{EntropySize: 100})
	require.Equal(t, ErrInvalidEntropySize, err)

	_, err = SeedFromMnemonic([]string{"not", "a", "mnemonic"}, "")
	require.Equal(t, ErrInvalidMnemonic, err)

	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	require.Len(t, seed, 64)
	require.Equal(t, Fingerprint(seed), Fingerprint(seed))
	require.Len(t, Fingerprint(seed), 40)
}
