package domain

import (
	"fmt"
)

const (
	// DefaultGapLimit is the number of consecutive unused addresses that ends
	// discovery on a chain.
	DefaultGapLimit = 20
	// NoIndex marks a chain without any used address yet.
	NoIndex = -1
)

// Account is a BIP44 account of a wallet. Cursors hold the index of the last
// address found in use on each chain and never move backwards.
type Account struct {
	ID                    string
	WalletID              string `badgerhold:"index"`
	Index                 uint32
	Xpub                  string
	DerivationPath        string
	GapLimit              uint32
	LastUsedExternalIndex int64
	LastUsedInternalIndex int64
	Balance               Balance
	TxIDs                 []string
	MempoolTxCount        int
	LastVerifiedAt        int64
}

// AccountID builds the identifier of the account with the given index.
func AccountID(walletID string, index uint32) string {
	return fmt.Sprintf("%s:%d", walletID, index)
}

func NewAccount(
	walletID string, index uint32, xpub, derivationPath string, gapLimit uint32,
) (*Account, error) {
	if walletID == "" {
		return nil, ErrWalletNotFound
	}
	if xpub == "" {
		return nil, ErrMissingXpub
	}
	if gapLimit == 0 {
		gapLimit = DefaultGapLimit
	}
	return &Account{
		ID:                    AccountID(walletID, index),
		WalletID:              walletID,
		Index:                 index,
		Xpub:                  xpub,
		DerivationPath:        derivationPath,
		GapLimit:              gapLimit,
		LastUsedExternalIndex: NoIndex,
		LastUsedInternalIndex: NoIndex,
	}, nil
}

// Cursor returns the last used index of the given chain, or NoIndex.
func (a *Account) Cursor(chain Chain) int64 {
	if chain == InternalChain {
		return a.LastUsedInternalIndex
	}
	return a.LastUsedExternalIndex
}

// AdvanceCursor moves the cursor of the chain forward to index. It returns
// false and leaves the account untouched if index is not ahead of the current
// cursor.
func (a *Account) AdvanceCursor(chain Chain, index int64) bool {
	cursor := &a.LastUsedExternalIndex
	if chain == InternalChain {
		cursor = &a.LastUsedInternalIndex
	}
	if index <= *cursor {
		return false
	}
	*cursor = index
	return true
}

// LinkTx adds the txid to the account's history. Linking is idempotent.
func (a *Account) LinkTx(txid string) bool {
	return appendUnique(&a.TxIDs, txid)
}

func (a *Account) UnlinkTx(txid string) bool {
	return removeItem(&a.TxIDs, txid)
}

func (a *Account) HasTx(txid string) bool {
	for _, id := range a.TxIDs {
		if id == txid {
			return true
		}
	}
	return false
}
