package application_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/application"
	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(
	network ports.NetworkGateway, repo ports.RepoManager,
) *application.Reconciler {
	return application.NewReconciler(
		network, repo, clock.NewDefaultClock(), 3, time.Millisecond,
	)
}

func TestIngestTransactionIsIdempotent(t *testing.T) {
	repo := newRepo()
	_, account := newTestAccount(t, repo, 3)
	addresses := storeAddresses(t, repo, account, domain.ExternalChain, 2)

	reconciler := newTestReconciler(newMockNetwork(), repo)
	tx := ports.Tx{
		TxID:      "tx1",
		Amount:    5000,
		Timestamp: 1700000000,
		Addresses: []string{addresses[0].Address, "foreign"},
	}

	created, err := reconciler.IngestTransaction(ctx, account.ID, tx)
	require.NoError(t, err)
	require.True(t, created)

	// The same tx mined later only updates the confirmation data.
	tx.Height = height(100)
	tx.Confirmations = 1
	tx.InstantLocked = true
	created, err = reconciler.IngestTransaction(ctx, account.ID, tx)
	require.NoError(t, err)
	require.False(t, created)

	stored, err := repo.TransactionRepository().GetTransaction(ctx, "tx1")
	require.NoError(t, err)
	require.Equal(t, int64(5000), stored.Amount)
	require.Equal(t, uint32(100), *stored.Height)
	require.True(t, stored.InstantLocked)
	require.Equal(t, []string{account.ID}, stored.AccountIDs)
	require.Equal(t, []string{addresses[0].Address}, stored.Addresses)

	storedAccount, err := repo.AccountRepository().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"tx1"}, storedAccount.TxIDs)

	addr, err := repo.AddressRepository().GetAddress(ctx, addresses[0].Address)
	require.NoError(t, err)
	require.Equal(t, []string{"tx1"}, addr.TxIDs)
	require.True(t, addr.Used)
}

func TestUpdateTransactions(t *testing.T) {
	repo := newRepo()
	_, account := newTestAccount(t, repo, 3)
	addresses := storeAddresses(t, repo, account, domain.ExternalChain, 2)

	network := newMockNetwork()
	network.On("GetTransactions", addresses[0].Address).Return([]ports.Tx{
		{TxID: "tx1", Amount: 100},
		{TxID: "tx2", Amount: 200, Height: height(10), Confirmations: 3},
	}, nil)
	network.On("GetTransactions", addresses[1].Address).Return([]ports.Tx{
		{TxID: "tx2", Amount: 200, Height: height(10), Confirmations: 3},
	}, nil)

	reconciler := newTestReconciler(network, repo)
	count, err := reconciler.UpdateTransactions(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Nothing new the second time.
	count, err = reconciler.UpdateTransactions(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	txs, err := repo.TransactionRepository().GetTransactions(ctx, []string{"tx1", "tx2"})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	mempool, err := reconciler.UpdateMempoolTransactionCount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, 1, mempool)
	storedAccount, err := repo.AccountRepository().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, 1, storedAccount.MempoolTxCount)
}

func TestTxLookupRetriesWithBackoff(t *testing.T) {
	repo := newRepo()
	_, account := newTestAccount(t, repo, 3)
	addresses := storeAddresses(t, repo, account, domain.ExternalChain, 1)

	network := newMockNetwork()
	network.On("GetTransactions", addresses[0].Address).
		Return([]ports.Tx{{TxID: "tx1"}}, nil)

	start := time.Unix(1700000000, 0)
	tickSignal := make(chan time.Duration)
	testClock := clock.NewTestClockWithTickSignal(start, tickSignal)

	lookupErr := errors.New("db is busy")
	flaky := &flakyRepoManager{repo, lookupErr}
	reconciler := application.NewReconciler(
		network, flaky, testClock, 3, 100*time.Millisecond,
	)

	errChan := make(chan error, 1)
	go func() {
		_, err := reconciler.UpdateTransactions(ctx, account.ID)
		errChan <- err
	}()

	now := start
	for _, expected := range []time.Duration{
		100 * time.Millisecond, 200 * time.Millisecond,
	} {
		require.Equal(t, expected, <-tickSignal)
		now = now.Add(expected)
		testClock.SetTime(now)
	}

	err := <-errChan
	var lookupError *domain.TxLookupError
	require.True(t, errors.As(err, &lookupError))
	require.Equal(t, "tx1", lookupError.TxID)
	require.Equal(t, 3, lookupError.Attempts)
	require.ErrorIs(t, err, lookupErr)

	_, err = repo.TransactionRepository().GetTransaction(ctx, "tx1")
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTxLookupWithoutRetries(t *testing.T) {
	t.Run("lookup_error", func(t *testing.T) {
		repo := newRepo()
		_, account := newTestAccount(t, repo, 3)
		addresses := storeAddresses(t, repo, account, domain.ExternalChain, 1)

		network := newMockNetwork()
		network.On("GetTransactions", addresses[0].Address).
			Return([]ports.Tx{{TxID: "tx1"}}, nil)

		lookupErr := errors.New("db is busy")
		reconciler := application.NewReconciler(
			network, &flakyRepoManager{repo, lookupErr},
			clock.NewDefaultClock(), 0, time.Hour,
		)

		_, err := reconciler.UpdateTransactions(ctx, account.ID)
		var lookupError *domain.TxLookupError
		require.True(t, errors.As(err, &lookupError))
		require.Equal(t, 1, lookupError.Attempts)
		require.ErrorIs(t, err, lookupErr)

		_, err = repo.TransactionRepository().GetTransaction(ctx, "tx1")
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("known_tx", func(t *testing.T) {
		repo := newRepo()
		_, account := newTestAccount(t, repo, 3)
		addresses := storeAddresses(t, repo, account, domain.ExternalChain, 1)

		network := newMockNetwork()
		network.On("GetTransactions", addresses[0].Address).
			Return([]ports.Tx{{TxID: "tx1", Amount: 100}}, nil)

		reconciler := application.NewReconciler(
			network, repo, clock.NewDefaultClock(), -1, time.Hour,
		)

		count, err := reconciler.UpdateTransactions(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		// The stored tx is still found without retries, so it is not new.
		count, err = reconciler.UpdateTransactions(ctx, account.ID)
		require.NoError(t, err)
		require.Zero(t, count)
	})
}

func TestRecomputeAccountBalance(t *testing.T) {
	repo := newRepo()
	_, account := newTestAccount(t, repo, 3)
	addresses := storeAddresses(t, repo, account, domain.ExternalChain, 3)

	network := newMockNetwork()
	network.On("GetBalance", addresses[0].Address).
		Return(domain.Balance{Confirmed: 1000, InstantLocked: 200}, nil)
	network.On("GetBalance", addresses[1].Address).
		Return(domain.NewBalance(0, 50, 25), nil)
	network.On("GetBalance", addresses[2].Address).
		Return(domain.Balance{}, nil)

	reconciler := newTestReconciler(network, repo)
	first, err := reconciler.RecomputeAccountBalance(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), first.Confirmed)
	require.Equal(t, uint64(50), first.Pending)
	require.Equal(t, uint64(25), first.Mempool)
	require.Equal(t, uint64(200), first.InstantLocked)
	require.Equal(t, uint64(1075), first.Total)

	// Recomputing with nothing changed gives the same result.
	second, err := reconciler.RecomputeAccountBalance(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)

	storedAccount, err := repo.AccountRepository().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, first, storedAccount.Balance)

	stored, err := repo.AddressRepository().ListAddressesForAccount(ctx, account.ID)
	require.NoError(t, err)
	balances := make([]domain.Balance, 0, len(stored))
	for _, a := range stored {
		balances = append(balances, a.Balance)
	}
	require.Equal(t, first, domain.SumBalances(balances...))
	require.True(t, stored[0].Used)
	require.False(t, stored[2].Used)
}

func TestFailingRecomputeAccountBalance(t *testing.T) {
	repo := newRepo()
	_, account := newTestAccount(t, repo, 3)
	addresses := storeAddresses(t, repo, account, domain.ExternalChain, 2)

	network := newMockNetwork()
	network.On("GetBalance", addresses[0].Address).Return(domain.NewBalance(10, 0, 0), nil)
	network.On("GetBalance", addresses[1].Address).Return(nil, domain.ErrNetwork)

	reconciler := newTestReconciler(network, repo)
	_, err := reconciler.RecomputeAccountBalance(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrNetwork)

	// Nothing is stored on failure.
	storedAccount, err := repo.AccountRepository().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, storedAccount.Balance.IsZero())
}

func TestConfirmAndRemoveTransaction(t *testing.T) {
	repo := newRepo()
	_, account := newTestAccount(t, repo, 3)
	addresses := storeAddresses(t, repo, account, domain.ExternalChain, 1)
	reconciler := newTestReconciler(newMockNetwork(), repo)

	for _, txid := range []string{"mined", "dropped"} {
		_, err := reconciler.IngestTransaction(ctx, account.ID, ports.Tx{
			TxID: txid, Addresses: []string{addresses[0].Address},
		})
		require.NoError(t, err)
	}

	require.NoError(t, reconciler.ConfirmTransaction(ctx, "mined", 120))
	mined, err := repo.TransactionRepository().GetTransaction(ctx, "mined")
	require.NoError(t, err)
	require.Equal(t, uint32(120), *mined.Height)
	require.Equal(t, uint32(1), mined.Confirmations)

	require.NoError(t, reconciler.RemoveTransaction(ctx, "dropped"))
	_, err = repo.TransactionRepository().GetTransaction(ctx, "dropped")
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	storedAccount, err := repo.AccountRepository().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"mined"}, storedAccount.TxIDs)
	addr, err := repo.AddressRepository().GetAddress(ctx, addresses[0].Address)
	require.NoError(t, err)
	require.Equal(t, []string{"mined"}, addr.TxIDs)

	// Removing an unknown tx is a no-op.
	require.NoError(t, reconciler.RemoveTransaction(ctx, "dropped"))
	require.Error(t, reconciler.ConfirmTransaction(ctx, "unknown", 1))
}
