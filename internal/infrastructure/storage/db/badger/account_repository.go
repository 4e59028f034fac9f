package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

type accountRepositoryImpl struct {
	store *badgerhold.Store
}

// NewAccountRepositoryImpl initialize a badger implementation of the domain.AccountRepository
func NewAccountRepositoryImpl(store *badgerhold.Store) domain.AccountRepository {
	return accountRepositoryImpl{store}
}

func (r accountRepositoryImpl) AddAccount(ctx context.Context, account *domain.Account) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		err := r.store.TxInsert(tx, account.ID, *account)
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateAccount, account.ID)
		}
		return err
	})
}

func (r accountRepositoryImpl) GetAccount(
	ctx context.Context, accountID string,
) (*domain.Account, error) {
	var account *domain.Account
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		a, err := r.getAccount(tx, accountID)
		account = a
		return err
	})
	return account, err
}

func (r accountRepositoryImpl) ListAccountsForWallet(
	ctx context.Context, walletID string,
) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		query := badgerhold.Where("WalletID").Eq(walletID)
		return r.store.TxFind(tx, &accounts, query)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index < accounts[j].Index
	})
	return accounts, nil
}

func (r accountRepositoryImpl) UpdateAccount(
	ctx context.Context,
	accountID string, updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		account, err := r.getAccount(tx, accountID)
		if err != nil {
			return err
		}

		updatedAccount, err := updateFn(account)
		if err != nil {
			return err
		}

		return r.store.TxUpdate(tx, accountID, *updatedAccount)
	})
}

func (r accountRepositoryImpl) DeleteAccount(ctx context.Context, accountID string) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		err := r.store.TxDelete(tx, accountID, domain.Account{})
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrAccountNotFound
		}
		return err
	})
}

func (r accountRepositoryImpl) getAccount(
	tx *badger.Txn, accountID string,
) (*domain.Account, error) {
	var account domain.Account
	if err := r.store.TxGet(tx, accountID, &account); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}
