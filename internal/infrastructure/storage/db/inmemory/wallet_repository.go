package inmemory

import (
	"context"
	"sort"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

type walletRepositoryImpl struct {
	store *store
}

// NewWalletRepositoryImpl returns a new inmemory WalletRepository implementation.
func NewWalletRepositoryImpl(s *store) domain.WalletRepository {
	return &walletRepositoryImpl{s}
}

func (r *walletRepositoryImpl) AddWallet(ctx context.Context, wallet *domain.Wallet) error {
	return r.store.run(ctx, true, func() error {
		if _, ok := r.store.wallets[wallet.ID]; ok {
			return domain.ErrDuplicateWallet
		}
		for _, w := range r.store.wallets {
			if w.SeedFingerprint == wallet.SeedFingerprint && w.Network == wallet.Network {
				return domain.ErrDuplicateWallet
			}
		}
		r.store.wallets[wallet.ID] = *wallet
		return nil
	})
}

func (r *walletRepositoryImpl) GetWallet(
	ctx context.Context, walletID string,
) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := r.store.run(ctx, false, func() error {
		w, ok := r.store.wallets[walletID]
		if !ok {
			return domain.ErrWalletNotFound
		}
		wallet = &w
		return nil
	})
	return wallet, err
}

func (r *walletRepositoryImpl) GetWalletByFingerprint(
	ctx context.Context, fingerprint string, network domain.Network,
) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := r.store.run(ctx, false, func() error {
		for _, w := range r.store.wallets {
			if w.SeedFingerprint == fingerprint && w.Network == network {
				found := w
				wallet = &found
				return nil
			}
		}
		return domain.ErrWalletNotFound
	})
	return wallet, err
}

func (r *walletRepositoryImpl) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	wallets := make([]domain.Wallet, 0)
	err := r.store.run(ctx, false, func() error {
		for _, w := range r.store.wallets {
			wallets = append(wallets, w)
		}
		return nil
	})
	sort.SliceStable(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt != wallets[j].CreatedAt {
			return wallets[i].CreatedAt < wallets[j].CreatedAt
		}
		return wallets[i].ID < wallets[j].ID
	})
	return wallets, err
}

func (r *walletRepositoryImpl) UpdateWallet(
	ctx context.Context,
	walletID string, updateFn func(w *domain.Wallet) (*domain.Wallet, error),
) error {
	return r.store.run(ctx, true, func() error {
		w, ok := r.store.wallets[walletID]
		if !ok {
			return domain.ErrWalletNotFound
		}
		updated, err := updateFn(&w)
		if err != nil {
			return err
		}
		r.store.wallets[walletID] = *updated
		return nil
	})
}

func (r *walletRepositoryImpl) DeleteWallet(ctx context.Context, walletID string) error {
	return r.store.run(ctx, true, func() error {
		if _, ok := r.store.wallets[walletID]; !ok {
			return domain.ErrWalletNotFound
		}
		delete(r.store.wallets, walletID)
		return nil
	})
}
