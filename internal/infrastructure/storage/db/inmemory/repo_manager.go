package inmemory

import (
	"context"
	"sync"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
)

type txContextKey struct{}

// store holds every entity. Transactions are serialized by txLock and
// rolled back by restoring the snapshot taken when they began.
type store struct {
	txLock sync.Mutex
	lock   sync.RWMutex

	wallets      map[string]domain.Wallet
	accounts     map[string]domain.Account
	addresses    map[string]domain.WatchedAddress
	transactions map[string]domain.Transaction
}

func newStore() *store {
	return &store{
		wallets:      make(map[string]domain.Wallet),
		accounts:     make(map[string]domain.Account),
		addresses:    make(map[string]domain.WatchedAddress),
		transactions: make(map[string]domain.Transaction),
	}
}

// run executes fn under the store lock. Calls outside a transaction also
// wait for any running transaction to end.
func (s *store) run(ctx context.Context, write bool, fn func() error) error {
	if ctx.Value(txContextKey{}) == nil {
		s.txLock.Lock()
		defer s.txLock.Unlock()
	}
	if write {
		s.lock.Lock()
		defer s.lock.Unlock()
	} else {
		s.lock.RLock()
		defer s.lock.RUnlock()
	}
	return fn()
}

type snapshot struct {
	wallets      map[string]domain.Wallet
	accounts     map[string]domain.Account
	addresses    map[string]domain.WatchedAddress
	transactions map[string]domain.Transaction
}

func (s *store) snapshot() snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return snapshot{
		wallets:      copyMap(s.wallets, func(w domain.Wallet) domain.Wallet { return w }),
		accounts:     copyMap(s.accounts, cloneAccount),
		addresses:    copyMap(s.addresses, cloneAddress),
		transactions: copyMap(s.transactions, cloneTransaction),
	}
}

func (s *store) restore(snap snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.wallets = snap.wallets
	s.accounts = snap.accounts
	s.addresses = snap.addresses
	s.transactions = snap.transactions
}

type RepoManager struct {
	store *store

	walletRepository      domain.WalletRepository
	accountRepository     domain.AccountRepository
	addressRepository     domain.AddressRepository
	transactionRepository domain.TransactionRepository
}

func NewRepoManager() ports.RepoManager {
	s := newStore()
	return &RepoManager{
		store:                 s,
		walletRepository:      NewWalletRepositoryImpl(s),
		accountRepository:     NewAccountRepositoryImpl(s),
		addressRepository:     NewAddressRepositoryImpl(s),
		transactionRepository: NewTransactionRepositoryImpl(s),
	}
}

func (r *RepoManager) WalletRepository() domain.WalletRepository {
	return r.walletRepository
}

func (r *RepoManager) AccountRepository() domain.AccountRepository {
	return r.accountRepository
}

func (r *RepoManager) AddressRepository() domain.AddressRepository {
	return r.addressRepository
}

func (r *RepoManager) TransactionRepository() domain.TransactionRepository {
	return r.transactionRepository
}

func (r *RepoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if ctx.Value(txContextKey{}) != nil {
		return handler(ctx)
	}

	r.store.txLock.Lock()
	defer r.store.txLock.Unlock()

	snap := r.store.snapshot()
	res, err := handler(context.WithValue(ctx, txContextKey{}, true))
	if err != nil {
		r.store.restore(snap)
		return nil, err
	}
	if readOnly {
		r.store.restore(snap)
	}
	return res, nil
}

func (r *RepoManager) Close() {}

func copyMap[T any](m map[string]T, clone func(T) T) map[string]T {
	res := make(map[string]T, len(m))
	for k, v := range m {
		res[k] = clone(v)
	}
	return res
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneAccount(a domain.Account) domain.Account {
	a.TxIDs = cloneStrings(a.TxIDs)
	return a
}

func cloneAddress(a domain.WatchedAddress) domain.WatchedAddress {
	a.TxIDs = cloneStrings(a.TxIDs)
	return a
}

func cloneTransaction(t domain.Transaction) domain.Transaction {
	t.AccountIDs = cloneStrings(t.AccountIDs)
	t.Addresses = cloneStrings(t.Addresses)
	if t.Raw != nil {
		t.Raw = append([]byte(nil), t.Raw...)
	}
	if t.Height != nil {
		h := *t.Height
		t.Height = &h
	}
	return t
}
