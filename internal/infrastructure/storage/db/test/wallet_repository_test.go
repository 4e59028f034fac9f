package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestWalletRepositoryImplementations(t *testing.T) {
	repositories := createRepoManagers(t)

	for i := range repositories {
		repo := repositories[i]

		t.Run(repo.Name, func(t *testing.T) {
			t.Run("testAddAndGetWallet", func(t *testing.T) {
				testAddAndGetWallet(t, repo)
			})

			t.Run("testDuplicateWallet", func(t *testing.T) {
				testDuplicateWallet(t, repo)
			})

			t.Run("testUpdateWallet", func(t *testing.T) {
				testUpdateWallet(t, repo)
			})

			t.Run("testDeleteWallet", func(t *testing.T) {
				testDeleteWallet(t, repo)
			})

			t.Run("testRunTransactionRollback", func(t *testing.T) {
				testRunTransactionRollback(t, repo)
			})
		})
	}
}

func testAddAndGetWallet(t *testing.T, repo repoManager) {
	wallet := makeRandomWallet(t, domain.NetworkTestnet)

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.WalletRepository().AddWallet(ctx, wallet)
	})
	require.NoError(t, err)

	iWallet, err := repo.read(func(ctx context.Context) (interface{}, error) {
		return repo.WalletRepository().GetWallet(ctx, wallet.ID)
	})
	require.NoError(t, err)
	require.Equal(t, *wallet, *iWallet.(*domain.Wallet))

	ctx := context.Background()
	found, err := repo.WalletRepository().GetWalletByFingerprint(
		ctx, wallet.SeedFingerprint, domain.NetworkTestnet,
	)
	require.NoError(t, err)
	require.Equal(t, wallet.ID, found.ID)

	_, err = repo.WalletRepository().GetWalletByFingerprint(
		ctx, wallet.SeedFingerprint, domain.NetworkMainnet,
	)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	wallets, err := repo.WalletRepository().ListWallets(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, wallets)

	_, err = repo.WalletRepository().GetWallet(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func testDuplicateWallet(t *testing.T, repo repoManager) {
	ctx := context.Background()
	wallet := makeRandomWallet(t, domain.NetworkTestnet)
	require.NoError(t, repo.WalletRepository().AddWallet(ctx, wallet))

	sameSeed := makeRandomWallet(t, domain.NetworkTestnet)
	sameSeed.SeedFingerprint = wallet.SeedFingerprint
	err := repo.WalletRepository().AddWallet(ctx, sameSeed)
	require.ErrorIs(t, err, domain.ErrDuplicateWallet)

	otherNetwork := makeRandomWallet(t, domain.NetworkMainnet)
	otherNetwork.SeedFingerprint = wallet.SeedFingerprint
	require.NoError(t, repo.WalletRepository().AddWallet(ctx, otherNetwork))
}

func testUpdateWallet(t *testing.T, repo repoManager) {
	ctx := context.Background()
	wallet := makeRandomWallet(t, domain.NetworkDevnet)
	require.NoError(t, repo.WalletRepository().AddWallet(ctx, wallet))

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.WalletRepository().UpdateWallet(
			ctx, wallet.ID, func(w *domain.Wallet) (*domain.Wallet, error) {
				w.AccountCount = 3
				w.LastSyncedAt = 1700000000
				return w, nil
			},
		)
	})
	require.NoError(t, err)

	updated, err := repo.WalletRepository().GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(3), updated.AccountCount)
	require.Equal(t, int64(1700000000), updated.LastSyncedAt)

	err = repo.WalletRepository().UpdateWallet(
		ctx, "unknown", func(w *domain.Wallet) (*domain.Wallet, error) {
			return w, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func testDeleteWallet(t *testing.T, repo repoManager) {
	ctx := context.Background()
	wallet := makeRandomWallet(t, domain.NetworkRegtest)
	require.NoError(t, repo.WalletRepository().AddWallet(ctx, wallet))

	require.NoError(t, repo.WalletRepository().DeleteWallet(ctx, wallet.ID))
	_, err := repo.WalletRepository().GetWallet(ctx, wallet.ID)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	err = repo.WalletRepository().DeleteWallet(ctx, wallet.ID)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func testRunTransactionRollback(t *testing.T, repo repoManager) {
	wallet := makeRandomWallet(t, domain.NetworkTestnet)
	account := makeRandomAccount(t, wallet.ID, 0)
	failure := errors.New("failure")

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		if err := repo.WalletRepository().AddWallet(ctx, wallet); err != nil {
			return nil, err
		}
		// nested calls join the outer transaction
		if _, err := repo.RunTransaction(
			ctx, false, func(ctx context.Context) (interface{}, error) {
				return nil, repo.AccountRepository().AddAccount(ctx, account)
			},
		); err != nil {
			return nil, err
		}
		return nil, failure
	})
	require.ErrorIs(t, err, failure)

	ctx := context.Background()
	_, err = repo.WalletRepository().GetWallet(ctx, wallet.ID)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	_, err = repo.AccountRepository().GetAccount(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
