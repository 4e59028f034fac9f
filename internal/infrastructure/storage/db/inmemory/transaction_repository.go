package inmemory

import (
	"context"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

type transactionRepositoryImpl struct {
	store *store
}

// NewTransactionRepositoryImpl returns a new inmemory TransactionRepository implementation.
func NewTransactionRepositoryImpl(s *store) domain.TransactionRepository {
	return &transactionRepositoryImpl{s}
}

func (r *transactionRepositoryImpl) AddTransaction(
	ctx context.Context, tx *domain.Transaction,
) error {
	return r.store.run(ctx, true, func() error {
		if _, ok := r.store.transactions[tx.TxID]; ok {
			return domain.ErrTransactionAlreadyExists
		}
		r.store.transactions[tx.TxID] = cloneTransaction(*tx)
		return nil
	})
}

func (r *transactionRepositoryImpl) GetTransaction(
	ctx context.Context, txid string,
) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := r.store.run(ctx, false, func() error {
		t, ok := r.store.transactions[txid]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		t = cloneTransaction(t)
		tx = &t
		return nil
	})
	return tx, err
}

func (r *transactionRepositoryImpl) GetTransactions(
	ctx context.Context, txids []string,
) ([]domain.Transaction, error) {
	res := make([]domain.Transaction, 0, len(txids))
	err := r.store.run(ctx, false, func() error {
		for _, txid := range txids {
			if t, ok := r.store.transactions[txid]; ok {
				res = append(res, cloneTransaction(t))
			}
		}
		return nil
	})
	return res, err
}

func (r *transactionRepositoryImpl) UpdateTransaction(
	ctx context.Context,
	txid string, updateFn func(t *domain.Transaction) (*domain.Transaction, error),
) error {
	return r.store.run(ctx, true, func() error {
		t, ok := r.store.transactions[txid]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		t = cloneTransaction(t)
		updated, err := updateFn(&t)
		if err != nil {
			return err
		}
		r.store.transactions[txid] = cloneTransaction(*updated)
		return nil
	})
}

func (r *transactionRepositoryImpl) DeleteTransaction(ctx context.Context, txid string) error {
	return r.store.run(ctx, true, func() error {
		if _, ok := r.store.transactions[txid]; !ok {
			return domain.ErrTransactionNotFound
		}
		delete(r.store.transactions, txid)
		return nil
	})
}
