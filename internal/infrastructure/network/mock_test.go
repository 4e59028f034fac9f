package network

import (
	"context"

	"github.com/dashsync/walletsyncd/pkg/crawler"
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

// stubCrawler records the observables added and removed by the gateway.
type stubCrawler struct {
	added   []string
	removed []string
}

func (s *stubCrawler) Start() {}
func (s *stubCrawler) Stop()  {}

func (s *stubCrawler) AddObservable(o crawler.Observable) {
	s.added = append(s.added, observableKey(o))
}

func (s *stubCrawler) RemoveObservable(o crawler.Observable) {
	s.removed = append(s.removed, observableKey(o))
}

func (s *stubCrawler) GetEventChannel() <-chan crawler.Event {
	return nil
}

func (s *stubCrawler) IsObservingAddresses([]string) bool {
	return false
}

func observableKey(o crawler.Observable) string {
	switch obs := o.(type) {
	case *crawler.AddressObservable:
		return obs.Address
	case *crawler.TransactionObservable:
		return obs.TxID
	}
	return ""
}
