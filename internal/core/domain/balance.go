package domain

// Balance is expressed in duffs, the smallest Dash unit.
// Total is always Confirmed + Pending + Mempool.
type Balance struct {
	Confirmed      uint64
	Pending        uint64
	InstantLocked  uint64
	Mempool        uint64
	MempoolInstant uint64
	Total          uint64
}

// NewBalance returns a balance with the total already computed.
func NewBalance(confirmed, pending, mempool uint64) Balance {
	return Balance{
		Confirmed: confirmed,
		Pending:   pending,
		Mempool:   mempool,
	}.WithTotal()
}

// WithTotal returns a copy of the balance with Total recomputed from its
// buckets, ignoring any value previously set.
func (b Balance) WithTotal() Balance {
	b.Total = b.Confirmed + b.Pending + b.Mempool
	return b
}

// Add sums every bucket of the two balances.
func (b Balance) Add(other Balance) Balance {
	return Balance{
		Confirmed:      b.Confirmed + other.Confirmed,
		Pending:        b.Pending + other.Pending,
		InstantLocked:  b.InstantLocked + other.InstantLocked,
		Mempool:        b.Mempool + other.Mempool,
		MempoolInstant: b.MempoolInstant + other.MempoolInstant,
	}.WithTotal()
}

func (b Balance) IsZero() bool {
	return b.Confirmed == 0 && b.Pending == 0 && b.Mempool == 0 &&
		b.InstantLocked == 0 && b.MempoolInstant == 0 && b.Total == 0
}

// SumBalances adds up the given balances. The result does not depend on the
// order of the inputs.
func SumBalances(balances ...Balance) Balance {
	total := Balance{}
	for _, b := range balances {
		total = total.Add(b)
	}
	return total
}
