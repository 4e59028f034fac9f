package explorer

import "context"

// TxStatus tells whether and where a tx has been mined.
type TxStatus struct {
	Confirmed   bool
	BlockHeight uint32
	BlockHash   string
	BlockTime   int64
}

// Input is a tx input with the output it spends.
type Input struct {
	TxID    string
	Vout    uint32
	Address string
	Value   uint64
}

// Output is a tx output paying to Address.
type Output struct {
	Address string
	Value   uint64
}

// Transaction represents a transaction in the Dash chain.
type Transaction struct {
	TxID     string
	Version  uint32
	Locktime uint32
	Size     uint32
	Fee      uint64
	Status   TxStatus
	Inputs   []Input
	Outputs  []Output
}

// NetAmount returns the value received by address minus the value it
// spent in the tx.
func (t Transaction) NetAmount(address string) int64 {
	var amount int64
	for _, out := range t.Outputs {
		if out.Address == address {
			amount += int64(out.Value)
		}
	}
	for _, in := range t.Inputs {
		if in.Address == address {
			amount -= int64(in.Value)
		}
	}
	return amount
}

// Involves tells whether address is among the inputs or outputs of the tx.
func (t Transaction) Involves(address string) bool {
	for _, out := range t.Outputs {
		if out.Address == address {
			return true
		}
	}
	for _, in := range t.Inputs {
		if in.Address == address {
			return true
		}
	}
	return false
}

// AddressBalance holds the funds of an address. Confirmed accounts for
// mined txs only, MempoolDelta is the net effect of unconfirmed ones.
type AddressBalance struct {
	Confirmed      uint64
	MempoolDelta   int64
	TxCount        int
	MempoolTxCount int
}

// Service is representation of an explorer that allows to fetch data from the
// blockchain.
type Service interface {
	// GetBlockHeight returns the the number of block of the blockchain.
	GetBlockHeight(ctx context.Context) (uint32, error)
	// GetAddressBalance returns the funds of the given address.
	GetAddressBalance(ctx context.Context, address string) (*AddressBalance, error)
	// GetTransactionsForAddress returns the list of all txs relative to the
	// given address, mempool ones included.
	GetTransactionsForAddress(ctx context.Context, address string) ([]Transaction, error)
	// GetTransaction returns the tx identified by its hash.
	GetTransaction(ctx context.Context, txid string) (*Transaction, error)
	// GetTransactionHex fetches the transaction in hex format given its hash.
	GetTransactionHex(ctx context.Context, txid string) (string, error)
	// GetTransactionStatus returns the status of the tx identified by its hash.
	GetTransactionStatus(ctx context.Context, txid string) (*TxStatus, error)
}
