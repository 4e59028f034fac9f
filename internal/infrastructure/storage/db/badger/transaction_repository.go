package dbbadger

import (
	"context"
	"errors"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

type transactionRepositoryImpl struct {
	store *badgerhold.Store
}

// NewTransactionRepositoryImpl initialize a badger implementation of the domain.TransactionRepository
func NewTransactionRepositoryImpl(store *badgerhold.Store) domain.TransactionRepository {
	return transactionRepositoryImpl{store}
}

func (r transactionRepositoryImpl) AddTransaction(
	ctx context.Context, transaction *domain.Transaction,
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		err := r.store.TxInsert(tx, transaction.TxID, *transaction)
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrTransactionAlreadyExists
		}
		return err
	})
}

func (r transactionRepositoryImpl) GetTransaction(
	ctx context.Context, txid string,
) (*domain.Transaction, error) {
	var transaction *domain.Transaction
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		t, err := r.getTransaction(tx, txid)
		transaction = t
		return err
	})
	return transaction, err
}

func (r transactionRepositoryImpl) GetTransactions(
	ctx context.Context, txids []string,
) ([]domain.Transaction, error) {
	res := make([]domain.Transaction, 0, len(txids))
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		for _, txid := range txids {
			t, err := r.getTransaction(tx, txid)
			if err != nil {
				if errors.Is(err, domain.ErrTransactionNotFound) {
					continue
				}
				return err
			}
			res = append(res, *t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r transactionRepositoryImpl) UpdateTransaction(
	ctx context.Context,
	txid string, updateFn func(t *domain.Transaction) (*domain.Transaction, error),
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		transaction, err := r.getTransaction(tx, txid)
		if err != nil {
			return err
		}

		updatedTx, err := updateFn(transaction)
		if err != nil {
			return err
		}

		return r.store.TxUpdate(tx, txid, *updatedTx)
	})
}

func (r transactionRepositoryImpl) DeleteTransaction(ctx context.Context, txid string) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		err := r.store.TxDelete(tx, txid, domain.Transaction{})
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrTransactionNotFound
		}
		return err
	})
}

func (r transactionRepositoryImpl) getTransaction(
	tx *badger.Txn, txid string,
) (*domain.Transaction, error) {
	var transaction domain.Transaction
	if err := r.store.TxGet(tx, txid, &transaction); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &transaction, nil
}
