package db_test

import (
	"context"
	"testing"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestAccountRepositoryImplementations(t *testing.T) {
	repositories := createRepoManagers(t)

	for i := range repositories {
		repo := repositories[i]

		t.Run(repo.Name, func(t *testing.T) {
			t.Run("testAddAndListAccounts", func(t *testing.T) {
				testAddAndListAccounts(t, repo)
			})

			t.Run("testUpdateAccount", func(t *testing.T) {
				testUpdateAccount(t, repo)
			})

			t.Run("testDeleteAccount", func(t *testing.T) {
				testDeleteAccount(t, repo)
			})
		})
	}
}

func testAddAndListAccounts(t *testing.T, repo repoManager) {
	ctx := context.Background()
	walletID := randomHex(16)

	for _, i := range []uint32{2, 0, 1} {
		require.NoError(
			t, repo.AccountRepository().AddAccount(ctx, makeRandomAccount(t, walletID, i)),
		)
	}

	err := repo.AccountRepository().AddAccount(ctx, makeRandomAccount(t, walletID, 1))
	require.ErrorIs(t, err, domain.ErrDuplicateAccount)

	accounts, err := repo.AccountRepository().ListAccountsForWallet(ctx, walletID)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for i, a := range accounts {
		require.Equal(t, uint32(i), a.Index)
		require.Equal(t, domain.AccountID(walletID, uint32(i)), a.ID)
	}

	accounts, err = repo.AccountRepository().ListAccountsForWallet(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func testUpdateAccount(t *testing.T, repo repoManager) {
	ctx := context.Background()
	account := makeRandomAccount(t, randomHex(16), 0)
	require.NoError(t, repo.AccountRepository().AddAccount(ctx, account))

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.AccountRepository().UpdateAccount(
			ctx, account.ID, func(a *domain.Account) (*domain.Account, error) {
				a.AdvanceCursor(domain.ExternalChain, 4)
				a.LinkTx("tx1")
				a.Balance = domain.NewBalance(100, 0, 50)
				return a, nil
			},
		)
	})
	require.NoError(t, err)

	updated, err := repo.AccountRepository().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), updated.LastUsedExternalIndex)
	require.Equal(t, int64(domain.NoIndex), updated.LastUsedInternalIndex)
	require.Equal(t, []string{"tx1"}, updated.TxIDs)
	require.Equal(t, uint64(150), updated.Balance.Total)
}

func testDeleteAccount(t *testing.T, repo repoManager) {
	ctx := context.Background()
	account := makeRandomAccount(t, randomHex(16), 0)
	require.NoError(t, repo.AccountRepository().AddAccount(ctx, account))

	require.NoError(t, repo.AccountRepository().DeleteAccount(ctx, account.ID))
	_, err := repo.AccountRepository().GetAccount(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = repo.AccountRepository().DeleteAccount(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
