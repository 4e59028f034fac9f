package crawler

import (
	"context"

	"github.com/dashsync/walletsyncd/pkg/explorer"
	"github.com/stretchr/testify/mock"
)

type mockExplorer struct {
	mock.Mock
}

func (m *mockExplorer) GetBlockHeight(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *mockExplorer) GetAddressBalance(
	ctx context.Context, address string,
) (*explorer.AddressBalance, error) {
	args := m.Called(ctx, address)
	var res *explorer.AddressBalance
	if a := args.Get(0); a != nil {
		res = a.(*explorer.AddressBalance)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetTransactionsForAddress(
	ctx context.Context, address string,
) ([]explorer.Transaction, error) {
	args := m.Called(ctx, address)
	var res []explorer.Transaction
	if a := args.Get(0); a != nil {
		res = a.([]explorer.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetTransaction(
	ctx context.Context, txid string,
) (*explorer.Transaction, error) {
	args := m.Called(ctx, txid)
	var res *explorer.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*explorer.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetTransactionHex(
	ctx context.Context, txid string,
) (string, error) {
	args := m.Called(ctx, txid)
	return args.String(0), args.Error(1)
}

func (m *mockExplorer) GetTransactionStatus(
	ctx context.Context, txid string,
) (*explorer.TxStatus, error) {
	args := m.Called(ctx, txid)
	var res *explorer.TxStatus
	if a := args.Get(0); a != nil {
		res = a.(*explorer.TxStatus)
	}
	return res, args.Error(1)
}
