package domain_test

import (
	"testing"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestBalance(t *testing.T) {
	t.Parallel()

	b := domain.NewBalance(100, 20, 3)
	require.Equal(t, uint64(123), b.Total)
	require.False(t, b.IsZero())
	require.True(t, domain.Balance{}.IsZero())

	b.Total = 1
	require.Equal(t, uint64(123), b.WithTotal().Total)
}

func TestSumBalances(t *testing.T) {
	t.Parallel()

	balances := []domain.Balance{
		domain.NewBalance(100, 0, 0),
		{Confirmed: 50, InstantLocked: 10, Mempool: 5, MempoolInstant: 5},
		domain.NewBalance(0, 7, 1),
	}

	sum := domain.SumBalances(balances...)
	require.Equal(t, uint64(150), sum.Confirmed)
	require.Equal(t, uint64(7), sum.Pending)
	require.Equal(t, uint64(6), sum.Mempool)
	require.Equal(t, uint64(10), sum.InstantLocked)
	require.Equal(t, uint64(5), sum.MempoolInstant)
	require.Equal(t, uint64(163), sum.Total)

	reversed := domain.SumBalances(balances[2], balances[1], balances[0])
	require.Equal(t, sum, reversed)
	require.Equal(t, domain.Balance{}, domain.SumBalances())
}
