package explorer_test

import (
	"testing"

	"github.com/dashsync/walletsyncd/pkg/explorer"
	"github.com/stretchr/testify/require"
)

func TestTransactionNetAmount(t *testing.T) {
	tx := explorer.Transaction{
		TxID: "aa",
		Inputs: []explorer.Input{
			{TxID: "bb", Vout: 0, Address: "addr1", Value: 5000},
		},
		Outputs: []explorer.Output{
			{Address: "addr2", Value: 3000},
			{Address: "addr1", Value: 1500},
		},
	}

	require.Equal(t, int64(-3500), tx.NetAmount("addr1"))
	require.Equal(t, int64(3000), tx.NetAmount("addr2"))
	require.Zero(t, tx.NetAmount("addr3"))

	require.True(t, tx.Involves("addr1"))
	require.True(t, tx.Involves("addr2"))
	require.False(t, tx.Involves("addr3"))
}
