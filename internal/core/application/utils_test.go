package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/internal/infrastructure/storage/db/inmemory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testXpub    = "xpub0"
	testNetwork = domain.NetworkTestnet
)

var ctx = context.Background()

// newTestAccount stores a wallet with its first account and returns both.
func newTestAccount(
	t *testing.T, repo ports.RepoManager, gapLimit uint32,
) (*domain.Wallet, *domain.Account) {
	t.Helper()

	w, err := domain.NewWallet(testNetwork, "seed", randomFingerprint(), time.Now())
	require.NoError(t, err)
	account, err := domain.NewAccount(
		w.ID, w.NextAccountIndex(), testXpub, "m/44'/1'/0'", gapLimit,
	)
	require.NoError(t, err)

	require.NoError(t, repo.WalletRepository().AddWallet(ctx, w))
	require.NoError(t, repo.AccountRepository().AddAccount(ctx, account))
	return w, account
}

// storeAddresses stores the first n addresses of the account chain.
func storeAddresses(
	t *testing.T, repo ports.RepoManager,
	account *domain.Account, chain domain.Chain, n uint32,
) []domain.WatchedAddress {
	t.Helper()

	list := make([]domain.WatchedAddress, 0, n)
	for i := uint32(0); i < n; i++ {
		list = append(list, domain.WatchedAddress{
			Address:   addressAt(account.Xpub, chain, i),
			AccountID: account.ID,
			Chain:     chain,
			Index:     i,
		})
	}
	count, err := repo.AddressRepository().AddAddresses(ctx, list...)
	require.NoError(t, err)
	require.Equal(t, int(n), count)
	return list
}

// unusedByDefault makes every address not explicitly mocked before look
// empty.
func unusedByDefault(network *mockNetwork) {
	network.On("GetBalance", mock.Anything).Return(domain.Balance{}, nil)
	network.On("GetTransactions", mock.Anything).Return([]ports.Tx{}, nil)
}

func newRepo() ports.RepoManager {
	return inmemory.NewRepoManager()
}

func randomFingerprint() string {
	return uuid.New().String()[:8]
}

func height(h uint32) *uint32 {
	return &h
}
