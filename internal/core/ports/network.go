package ports

import (
	"context"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

// NetworkGateway is the connection to the Dash network used to sync and
// monitor the wallet.
type NetworkGateway interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	// GetBalance returns the current balance of a single address.
	GetBalance(ctx context.Context, address string) (domain.Balance, error)
	// GetTransactions returns the history of a single address.
	GetTransactions(ctx context.Context, address string) ([]Tx, error)
	// WatchAddress registers the address for monitoring. Registering the
	// same address more than once has no effect.
	WatchAddress(ctx context.Context, address, label string) error
	// SyncProgress starts a sync run and returns the stream of its progress
	// reports.
	SyncProgress(ctx context.Context) (ProgressStream, error)
	// Events returns the channel of network events. The channel lives as
	// long as the gateway and survives reconnections.
	Events() <-chan Event
}

// ProgressStream yields the progress reports of a sync run. Recv returns
// io.EOF once the run is over.
type ProgressStream interface {
	Recv() (domain.SyncProgress, error)
}

// Tx is a transaction as reported by the network. Addresses lists the
// watched addresses involved and Amount is the net value for them.
type Tx struct {
	TxID          string
	Amount        int64
	Fee           uint64
	Height        *uint32
	Confirmations uint32
	InstantLocked bool
	Timestamp     int64
	Raw           []byte
	Size          uint32
	Version       uint32
	Addresses     []string
}

func (t Tx) IsConfirmed() bool {
	return t.Height != nil || t.Confirmations > 0
}

type EventType int

const (
	ConnectionStatusChanged EventType = iota
	BalanceUpdated
	TransactionReceived
	MempoolTransactionAdded
	MempoolTransactionConfirmed
	MempoolTransactionRemoved
	SyncProgressUpdated
)

func (et EventType) String() string {
	switch et {
	case ConnectionStatusChanged:
		return "ConnectionStatusChanged"
	case BalanceUpdated:
		return "BalanceUpdated"
	case TransactionReceived:
		return "TransactionReceived"
	case MempoolTransactionAdded:
		return "MempoolTransactionAdded"
	case MempoolTransactionConfirmed:
		return "MempoolTransactionConfirmed"
	case MempoolTransactionRemoved:
		return "MempoolTransactionRemoved"
	case SyncProgressUpdated:
		return "SyncProgressUpdated"
	default:
		return "Unknown"
	}
}

type Event interface {
	Type() EventType
}

type ConnectionEvent struct {
	Connected bool
}

func (ConnectionEvent) Type() EventType {
	return ConnectionStatusChanged
}

type BalanceEvent struct {
	Address string
	Balance domain.Balance
}

func (BalanceEvent) Type() EventType {
	return BalanceUpdated
}

// TransactionEvent notifies a tx affecting some watched address, either
// mined (TransactionReceived) or just seen in mempool.
type TransactionEvent struct {
	EventType EventType
	Tx        Tx
}

func (e TransactionEvent) Type() EventType {
	return e.EventType
}

type MempoolConfirmedEvent struct {
	TxID        string
	BlockHeight uint32
}

func (MempoolConfirmedEvent) Type() EventType {
	return MempoolTransactionConfirmed
}

type MempoolRemovedEvent struct {
	TxID string
}

func (MempoolRemovedEvent) Type() EventType {
	return MempoolTransactionRemoved
}

// ProgressEvent reports progress out of band for the sync session it names.
// Reports for any session other than the current one are dropped.
type ProgressEvent struct {
	SessionID string
	Progress  domain.SyncProgress
}

func (ProgressEvent) Type() EventType {
	return SyncProgressUpdated
}
