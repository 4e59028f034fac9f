package crawler

import "github.com/dashsync/walletsyncd/pkg/explorer"

const (
	QuitSignal EventType = iota
	AddressActivity
	TransactionConfirmed
	TransactionUnconfirmed
)

type EventType int

func (et EventType) String() string {
	switch et {
	case QuitSignal:
		return "QuitSignal"
	case AddressActivity:
		return "AddressActivity"
	case TransactionConfirmed:
		return "TransactionConfirmed"
	case TransactionUnconfirmed:
		return "TransactionUnconfirmed"
	default:
		return "Unknown"
	}
}

// AddressEvent carries the current balance and history of an address.
type AddressEvent struct {
	Address string
	Label   string
	Balance explorer.AddressBalance
	Txs     []explorer.Transaction
}

func (a AddressEvent) Type() EventType {
	return AddressActivity
}

type TransactionEvent struct {
	EventType   EventType
	TxID        string
	BlockHeight uint32
	BlockHash   string
	BlockTime   int64
}

func (te TransactionEvent) Type() EventType {
	return te.EventType
}

type QuitEvent struct{}

func (q QuitEvent) Type() EventType {
	return QuitSignal
}
