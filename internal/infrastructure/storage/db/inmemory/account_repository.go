package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

type accountRepositoryImpl struct {
	store *store
}

// NewAccountRepositoryImpl returns a new inmemory AccountRepository implementation.
func NewAccountRepositoryImpl(s *store) domain.AccountRepository {
	return &accountRepositoryImpl{s}
}

func (r *accountRepositoryImpl) AddAccount(ctx context.Context, account *domain.Account) error {
	return r.store.run(ctx, true, func() error {
		if _, ok := r.store.accounts[account.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateAccount, account.ID)
		}
		r.store.accounts[account.ID] = cloneAccount(*account)
		return nil
	})
}

func (r *accountRepositoryImpl) GetAccount(
	ctx context.Context, accountID string,
) (*domain.Account, error) {
	var account *domain.Account
	err := r.store.run(ctx, false, func() error {
		a, ok := r.store.accounts[accountID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		a = cloneAccount(a)
		account = &a
		return nil
	})
	return account, err
}

func (r *accountRepositoryImpl) ListAccountsForWallet(
	ctx context.Context, walletID string,
) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	err := r.store.run(ctx, false, func() error {
		for _, a := range r.store.accounts {
			if a.WalletID == walletID {
				accounts = append(accounts, cloneAccount(a))
			}
		}
		return nil
	})
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index < accounts[j].Index
	})
	return accounts, err
}

func (r *accountRepositoryImpl) UpdateAccount(
	ctx context.Context,
	accountID string, updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	return r.store.run(ctx, true, func() error {
		a, ok := r.store.accounts[accountID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		a = cloneAccount(a)
		updated, err := updateFn(&a)
		if err != nil {
			return err
		}
		r.store.accounts[accountID] = cloneAccount(*updated)
		return nil
	})
}

func (r *accountRepositoryImpl) DeleteAccount(ctx context.Context, accountID string) error {
	return r.store.run(ctx, true, func() error {
		if _, ok := r.store.accounts[accountID]; !ok {
			return domain.ErrAccountNotFound
		}
		delete(r.store.accounts, accountID)
		return nil
	})
}
