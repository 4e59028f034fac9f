package db_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	dbbadger "github.com/dashsync/walletsyncd/internal/infrastructure/storage/db/badger"
	"github.com/dashsync/walletsyncd/internal/infrastructure/storage/db/inmemory"
	"github.com/stretchr/testify/require"
)

type repoManager struct {
	Name string
	ports.RepoManager
}

func (r repoManager) write(
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	return r.RunTransaction(context.Background(), false, handler)
}

func (r repoManager) read(
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	return r.RunTransaction(context.Background(), true, handler)
}

// createRepoManagers returns a fresh instance of every implementation.
func createRepoManagers(t *testing.T) []repoManager {
	badgerRepo, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	t.Cleanup(badgerRepo.Close)

	return []repoManager{
		{Name: "badger", RepoManager: badgerRepo},
		{Name: "inmemory", RepoManager: inmemory.NewRepoManager()},
	}
}

func makeRandomWallet(t *testing.T, network domain.Network) *domain.Wallet {
	wallet, err := domain.NewWallet(network, "", randomHex(20), time.Now())
	require.NoError(t, err)
	return wallet
}

func makeRandomAccount(t *testing.T, walletID string, index uint32) *domain.Account {
	account, err := domain.NewAccount(
		walletID, index, "tpub"+randomHex(32), "m/44'/1'/0'", domain.DefaultGapLimit,
	)
	require.NoError(t, err)
	return account
}

func makeAddress(
	accountID string, chain domain.Chain, index uint32,
) domain.WatchedAddress {
	return domain.WatchedAddress{
		Address:   "y" + randomHex(16),
		AccountID: accountID,
		Chain:     chain,
		Index:     index,
	}
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
