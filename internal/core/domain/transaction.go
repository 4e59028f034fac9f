package domain

// Transaction is stored once per txid no matter how many accounts or
// addresses reference it. Height is nil while the tx is unconfirmed.
type Transaction struct {
	TxID          string
	Height        *uint32
	Timestamp     int64
	Amount        int64
	Fee           uint64
	Confirmations uint32
	InstantLocked bool
	Raw           []byte
	Size          uint32
	Version       uint32
	AccountIDs    []string
	Addresses     []string
}

func (t *Transaction) IsConfirmed() bool {
	return t.Confirmations > 0
}

// IsMempool tells whether the tx is still waiting to be mined.
func (t *Transaction) IsMempool() bool {
	return t.Confirmations == 0
}

// Confirm marks the tx as mined at the given height. Confirmations only grow.
func (t *Transaction) Confirm(height uint32) {
	h := height
	t.Height = &h
	if t.Confirmations < 1 {
		t.Confirmations = 1
	}
}

// ApplyUpdate merges a newer observation of the tx. A confirmed update raises
// confirmations to at least one; an unconfirmed one never lowers them.
func (t *Transaction) ApplyUpdate(confirmed bool, height *uint32, instantLocked bool) {
	if confirmed {
		if height != nil {
			t.Confirm(*height)
		} else if t.Confirmations < 1 {
			t.Confirmations = 1
		}
	}
	if instantLocked {
		t.InstantLocked = true
	}
}

func (t *Transaction) LinkAccount(accountID string) bool {
	return appendUnique(&t.AccountIDs, accountID)
}

func (t *Transaction) UnlinkAccount(accountID string) bool {
	return removeItem(&t.AccountIDs, accountID)
}

func (t *Transaction) LinkAddress(address string) bool {
	return appendUnique(&t.Addresses, address)
}

func appendUnique(list *[]string, item string) bool {
	for _, v := range *list {
		if v == item {
			return false
		}
	}
	*list = append(*list, item)
	return true
}

func removeItem(list *[]string, item string) bool {
	for i, v := range *list {
		if v == item {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
