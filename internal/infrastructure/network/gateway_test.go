package network

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/pkg/crawler"
	"github.com/dashsync/walletsyncd/pkg/explorer"
	"github.com/dashsync/walletsyncd/pkg/wallet"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func testAddress(t *testing.T, index uint32) string {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	xpub, err := wallet.AccountExtendedPublicKey(wallet.ExtendedKeyOpts{
		Seed:    seed,
		Network: &wallet.TestNetParams,
	})
	require.NoError(t, err)

	addr, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
		Xpub:    xpub,
		Network: &wallet.TestNetParams,
		Index:   index,
	})
	require.NoError(t, err)
	return addr
}

func newTestGateway(t *testing.T, explorerSvc explorer.Service) *gateway {
	g, err := NewGateway(Opts{
		ExplorerSvc:       explorerSvc,
		Network:           domain.NetworkTestnet,
		CrawlInterval:     time.Hour,
		RequestsPerSecond: 100,
		Clock:             clock.NewTestClock(time.Unix(1700000000, 0)),
	})
	require.NoError(t, err)
	return g.(*gateway)
}

func nextEvent(t *testing.T, g *gateway) ports.Event {
	t.Helper()
	select {
	case e := <-g.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for network event")
		return nil
	}
}

func TestNewGateway(t *testing.T) {
	_, err := NewGateway(Opts{Network: domain.NetworkTestnet})
	require.Error(t, err)

	_, err = NewGateway(Opts{ExplorerSvc: &mockExplorer{}, Network: "litecoin"})
	require.ErrorIs(t, err, domain.ErrInvalidNetwork)
}

func TestConnectAndDisconnect(t *testing.T) {
	t.Run("explorer unreachable", func(t *testing.T) {
		explorerSvc := &mockExplorer{}
		explorerSvc.On("GetBlockHeight", mock.Anything).
			Return(uint32(0), errors.New("connection refused"))

		g := newTestGateway(t, explorerSvc)
		err := g.Connect(ctx)
		require.ErrorIs(t, err, domain.ErrNetwork)
		require.False(t, g.IsConnected())
	})

	t.Run("connection events", func(t *testing.T) {
		explorerSvc := &mockExplorer{}
		explorerSvc.On("GetBlockHeight", mock.Anything).Return(uint32(100), nil)

		g := newTestGateway(t, explorerSvc)
		require.NoError(t, g.Connect(ctx))
		require.True(t, g.IsConnected())
		require.Equal(t, ports.ConnectionEvent{Connected: true}, nextEvent(t, g))

		// connecting twice is a no-op
		require.NoError(t, g.Connect(ctx))
		explorerSvc.AssertNumberOfCalls(t, "GetBlockHeight", 1)

		require.NoError(t, g.Disconnect())
		require.False(t, g.IsConnected())
		require.Equal(t, ports.ConnectionEvent{Connected: false}, nextEvent(t, g))
		require.NoError(t, g.Disconnect())
	})
}

func TestWatchAddress(t *testing.T) {
	address := testAddress(t, 0)
	explorerSvc := &mockExplorer{}
	explorerSvc.On("GetBlockHeight", mock.Anything).Return(uint32(100), nil)
	explorerSvc.On("GetAddressBalance", mock.Anything, address).
		Return(&explorer.AddressBalance{}, nil)
	explorerSvc.On("GetTransactionsForAddress", mock.Anything, address).
		Return([]explorer.Transaction{}, nil)

	g := newTestGateway(t, explorerSvc)

	err := g.WatchAddress(ctx, address, "")
	require.ErrorIs(t, err, domain.ErrNotConnected)

	require.NoError(t, g.Connect(ctx))
	defer g.Disconnect()

	err = g.WatchAddress(ctx, "not-an-address", "")
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	require.NoError(t, g.WatchAddress(ctx, address, "label"))
	require.NoError(t, g.WatchAddress(ctx, address, "label"))
	require.Equal(t, []string{address}, g.watchedAddresses())
}

func TestGetBalance(t *testing.T) {
	tests := []struct {
		name     string
		balance  explorer.AddressBalance
		expected domain.Balance
	}{
		{
			name:     "confirmed only",
			balance:  explorer.AddressBalance{Confirmed: 1000},
			expected: domain.NewBalance(1000, 0, 0),
		},
		{
			name:     "incoming mempool",
			balance:  explorer.AddressBalance{Confirmed: 1000, MempoolDelta: 500},
			expected: domain.NewBalance(1000, 0, 500),
		},
		{
			name:     "outgoing mempool",
			balance:  explorer.AddressBalance{Confirmed: 1000, MempoolDelta: -400},
			expected: domain.NewBalance(600, 0, 0),
		},
		{
			name:     "outgoing mempool larger than confirmed",
			balance:  explorer.AddressBalance{Confirmed: 100, MempoolDelta: -400},
			expected: domain.NewBalance(0, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			explorerSvc := &mockExplorer{}
			explorerSvc.On("GetBlockHeight", mock.Anything).Return(uint32(100), nil)
			explorerSvc.On("GetAddressBalance", mock.Anything, "addr").
				Return(&tt.balance, nil)

			g := newTestGateway(t, explorerSvc)
			_, err := g.GetBalance(ctx, "addr")
			require.ErrorIs(t, err, domain.ErrNotConnected)

			require.NoError(t, g.Connect(ctx))
			defer g.Disconnect()

			balance, err := g.GetBalance(ctx, "addr")
			require.NoError(t, err)
			require.Equal(t, tt.expected, balance)
		})
	}
}

func TestGetTransactions(t *testing.T) {
	explorerSvc := &mockExplorer{}
	explorerSvc.On("GetBlockHeight", mock.Anything).Return(uint32(110), nil)
	explorerSvc.On("GetTransactionsForAddress", mock.Anything, "addr").
		Return([]explorer.Transaction{
			{
				TxID:    "mined",
				Status:  explorer.TxStatus{Confirmed: true, BlockHeight: 101, BlockTime: 1600000000},
				Outputs: []explorer.Output{{Address: "addr", Value: 3000}},
			},
			{
				TxID:   "pending",
				Inputs: []explorer.Input{{Address: "addr", Value: 1000}},
			},
		}, nil)

	g := newTestGateway(t, explorerSvc)
	require.NoError(t, g.Connect(ctx))
	defer g.Disconnect()

	txs, err := g.GetTransactions(ctx, "addr")
	require.NoError(t, err)
	require.Len(t, txs, 2)

	require.Equal(t, int64(3000), txs[0].Amount)
	require.NotNil(t, txs[0].Height)
	require.Equal(t, uint32(101), *txs[0].Height)
	require.Equal(t, uint32(10), txs[0].Confirmations)
	require.Equal(t, int64(1600000000), txs[0].Timestamp)
	require.True(t, txs[0].IsConfirmed())

	require.Equal(t, int64(-1000), txs[1].Amount)
	require.Nil(t, txs[1].Height)
	require.False(t, txs[1].IsConfirmed())
	require.Equal(t, []string{"addr"}, txs[1].Addresses)
}

func TestAddressEventsDiff(t *testing.T) {
	g := newTestGateway(t, &mockExplorer{})
	g.tipHeight = 100
	c := &stubCrawler{}

	first := crawler.AddressEvent{
		Address: "addr",
		Balance: explorer.AddressBalance{Confirmed: 1000},
		Txs: []explorer.Transaction{
			{TxID: "old", Status: explorer.TxStatus{Confirmed: true, BlockHeight: 90}},
		},
	}
	require.Empty(t, g.handleAddressEvent(c, first))

	second := crawler.AddressEvent{
		Address: "addr",
		Balance: explorer.AddressBalance{Confirmed: 1000, MempoolDelta: 200},
		Txs: []explorer.Transaction{
			first.Txs[0],
			{TxID: "new", Outputs: []explorer.Output{{Address: "addr", Value: 200}}},
		},
	}
	events := g.handleAddressEvent(c, second)
	require.Len(t, events, 2)
	require.Equal(t, ports.MempoolTransactionAdded, events[0].Type())
	require.Equal(t, "new", events[0].(ports.TransactionEvent).Tx.TxID)
	require.Equal(t, ports.BalanceUpdated, events[1].Type())
	require.Equal(t, []string{"new"}, c.added)

	// same observation twice yields nothing
	require.Empty(t, g.handleAddressEvent(c, second))

	third := crawler.AddressEvent{
		Address: "addr",
		Balance: explorer.AddressBalance{Confirmed: 1200},
		Txs: []explorer.Transaction{
			first.Txs[0],
			{TxID: "new", Status: explorer.TxStatus{Confirmed: true, BlockHeight: 101}},
		},
	}
	events = g.handleAddressEvent(c, third)
	require.Len(t, events, 2)
	require.Equal(t, ports.MempoolConfirmedEvent{TxID: "new", BlockHeight: 101}, events[0])
	require.Equal(t, ports.BalanceUpdated, events[1].Type())
	require.Equal(t, []string{"new"}, c.removed)

	// a late confirmation from the tx observable is not reported twice
	require.Empty(t, g.handleTransactionEvent(c, crawler.TransactionEvent{
		EventType: crawler.TransactionConfirmed, TxID: "new", BlockHeight: 101,
	}))
}

func TestMempoolTxDropped(t *testing.T) {
	g := newTestGateway(t, &mockExplorer{})
	c := &stubCrawler{}

	require.Empty(t, g.handleAddressEvent(c, crawler.AddressEvent{Address: "addr"}))
	events := g.handleAddressEvent(c, crawler.AddressEvent{
		Address: "addr",
		Txs:     []explorer.Transaction{{TxID: "dropped"}},
	})
	require.Len(t, events, 1)

	events = g.handleAddressEvent(c, crawler.AddressEvent{Address: "addr"})
	require.Equal(t, []ports.Event{ports.MempoolRemovedEvent{TxID: "dropped"}}, events)
}

func TestMinedTxReceived(t *testing.T) {
	g := newTestGateway(t, &mockExplorer{})
	g.tipHeight = 205
	c := &stubCrawler{}

	require.Empty(t, g.handleAddressEvent(c, crawler.AddressEvent{Address: "addr"}))
	events := g.handleAddressEvent(c, crawler.AddressEvent{
		Address: "addr",
		Txs: []explorer.Transaction{
			{TxID: "mined", Status: explorer.TxStatus{Confirmed: true, BlockHeight: 200}},
		},
	})
	require.Len(t, events, 1)
	txEvent := events[0].(ports.TransactionEvent)
	require.Equal(t, ports.TransactionReceived, txEvent.Type())
	require.Equal(t, uint32(6), txEvent.Tx.Confirmations)
	require.Empty(t, c.added)
}

func TestSyncProgress(t *testing.T) {
	address := testAddress(t, 0)
	explorerSvc := &mockExplorer{}
	explorerSvc.On("GetBlockHeight", mock.Anything).Return(uint32(500), nil)
	explorerSvc.On("GetAddressBalance", mock.Anything, address).
		Return(&explorer.AddressBalance{}, nil)
	explorerSvc.On("GetTransactionsForAddress", mock.Anything, address).
		Return([]explorer.Transaction{}, nil)

	g := newTestGateway(t, explorerSvc)
	_, err := g.SyncProgress(ctx)
	require.ErrorIs(t, err, domain.ErrNotConnected)

	require.NoError(t, g.Connect(ctx))
	defer g.Disconnect()
	require.NoError(t, g.WatchAddress(ctx, address, ""))

	stream, err := g.SyncProgress(ctx)
	require.NoError(t, err)

	stages := make([]domain.SyncStage, 0)
	for {
		p, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		stages = append(stages, p.Stage)
		if p.Stage == domain.StageComplete {
			require.Equal(t, float64(100), p.Percentage)
			require.Equal(t, uint32(500), p.TotalHeight)
		}
	}
	require.Equal(t, []domain.SyncStage{
		domain.StageConnecting,
		domain.StageQueryingHeight,
		domain.StageDownloading,
		domain.StageValidating,
		domain.StageStoring,
		domain.StageComplete,
	}, stages)
}

func TestSyncProgressFailure(t *testing.T) {
	explorerSvc := &mockExplorer{}
	explorerSvc.On("GetBlockHeight", mock.Anything).Return(uint32(500), nil).Once()
	explorerSvc.On("GetBlockHeight", mock.Anything).
		Return(uint32(0), errors.New("timeout"))

	g := newTestGateway(t, explorerSvc)
	require.NoError(t, g.Connect(ctx))
	defer g.Disconnect()

	stream, err := g.SyncProgress(ctx)
	require.NoError(t, err)

	p, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, domain.StageConnecting, p.Stage)

	_, err = stream.Recv()
	require.ErrorIs(t, err, domain.ErrNetwork)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}
