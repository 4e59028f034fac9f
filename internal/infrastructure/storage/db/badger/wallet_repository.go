package dbbadger

import (
	"context"
	"errors"
	"sort"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

type walletRepositoryImpl struct {
	store *badgerhold.Store
}

// NewWalletRepositoryImpl initialize a badger implementation of the domain.WalletRepository
func NewWalletRepositoryImpl(store *badgerhold.Store) domain.WalletRepository {
	return walletRepositoryImpl{store}
}

func (r walletRepositoryImpl) AddWallet(ctx context.Context, wallet *domain.Wallet) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		existing, err := r.findByFingerprint(tx, wallet.SeedFingerprint, wallet.Network)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateWallet
		}

		if err := r.store.TxInsert(tx, wallet.ID, *wallet); err != nil {
			if errors.Is(err, badgerhold.ErrKeyExists) {
				return domain.ErrDuplicateWallet
			}
			return err
		}
		return nil
	})
}

func (r walletRepositoryImpl) GetWallet(
	ctx context.Context, walletID string,
) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		w, err := r.getWallet(tx, walletID)
		wallet = w
		return err
	})
	return wallet, err
}

func (r walletRepositoryImpl) GetWalletByFingerprint(
	ctx context.Context, fingerprint string, network domain.Network,
) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		w, err := r.findByFingerprint(tx, fingerprint, network)
		if err != nil {
			return err
		}
		if w == nil {
			return domain.ErrWalletNotFound
		}
		wallet = w
		return nil
	})
	return wallet, err
}

func (r walletRepositoryImpl) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	wallets := make([]domain.Wallet, 0)
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		return r.store.TxFind(tx, &wallets, nil)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(wallets, func(i, j int) bool {
		return wallets[i].CreatedAt < wallets[j].CreatedAt
	})
	return wallets, nil
}

func (r walletRepositoryImpl) UpdateWallet(
	ctx context.Context,
	walletID string, updateFn func(w *domain.Wallet) (*domain.Wallet, error),
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		wallet, err := r.getWallet(tx, walletID)
		if err != nil {
			return err
		}

		updatedWallet, err := updateFn(wallet)
		if err != nil {
			return err
		}

		return r.store.TxUpdate(tx, walletID, *updatedWallet)
	})
}

func (r walletRepositoryImpl) DeleteWallet(ctx context.Context, walletID string) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		err := r.store.TxDelete(tx, walletID, domain.Wallet{})
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrWalletNotFound
		}
		return err
	})
}

func (r walletRepositoryImpl) getWallet(
	tx *badger.Txn, walletID string,
) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := r.store.TxGet(tx, walletID, &wallet); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r walletRepositoryImpl) findByFingerprint(
	tx *badger.Txn, fingerprint string, network domain.Network,
) (*domain.Wallet, error) {
	var wallets []domain.Wallet
	query := badgerhold.Where("SeedFingerprint").Eq(fingerprint)
	if err := r.store.TxFind(tx, &wallets, query); err != nil {
		return nil, err
	}

	for _, w := range wallets {
		if w.Network == network {
			wallet := w
			return &wallet, nil
		}
	}
	return nil, nil
}
