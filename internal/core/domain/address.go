package domain

import "time"

// WatchedAddress is an address derived for an account and registered with
// the network for monitoring. The pair (AccountID, Chain, Index) is unique.
type WatchedAddress struct {
	Address        string
	AccountID      string `badgerhold:"index"`
	Chain          Chain
	Index          uint32
	DerivationPath string
	Label          string
	Used           bool
	Balance        Balance
	TxIDs          []string
	LastActivityAt int64
}

// IsAt tells whether the address sits at the given position of the account
// key tree.
func (a WatchedAddress) IsAt(accountID string, chain Chain, index uint32) bool {
	return a.AccountID == accountID && a.Chain == chain && a.Index == index
}

func (a *WatchedAddress) LinkTx(txid string, at time.Time) bool {
	for _, id := range a.TxIDs {
		if id == txid {
			return false
		}
	}
	a.TxIDs = append(a.TxIDs, txid)
	a.Used = true
	if ts := at.Unix(); ts > a.LastActivityAt {
		a.LastActivityAt = ts
	}
	return true
}

// UnlinkTx drops the txid from the address history. The address stays
// marked as used since it was seen on the network.
func (a *WatchedAddress) UnlinkTx(txid string) bool {
	for i, id := range a.TxIDs {
		if id == txid {
			a.TxIDs = append(a.TxIDs[:i], a.TxIDs[i+1:]...)
			return true
		}
	}
	return false
}
