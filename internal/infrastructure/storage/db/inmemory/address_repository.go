package inmemory

import (
	"context"
	"sort"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

type addressRepositoryImpl struct {
	store *store
}

// NewAddressRepositoryImpl returns a new inmemory AddressRepository implementation.
func NewAddressRepositoryImpl(s *store) domain.AddressRepository {
	return &addressRepositoryImpl{s}
}

func (r *addressRepositoryImpl) AddAddresses(
	ctx context.Context, addresses ...domain.WatchedAddress,
) (int, error) {
	count := 0
	err := r.store.run(ctx, true, func() error {
		for _, addr := range addresses {
			if r.taken(addr) {
				continue
			}
			r.store.addresses[addr.Address] = cloneAddress(addr)
			count++
		}
		return nil
	})
	return count, err
}

func (r *addressRepositoryImpl) GetAddress(
	ctx context.Context, address string,
) (*domain.WatchedAddress, error) {
	var addr *domain.WatchedAddress
	err := r.store.run(ctx, false, func() error {
		a, ok := r.store.addresses[address]
		if !ok {
			return domain.ErrAddressNotFound
		}
		a = cloneAddress(a)
		addr = &a
		return nil
	})
	return addr, err
}

func (r *addressRepositoryImpl) GetAddresses(
	ctx context.Context, addresses []string,
) ([]domain.WatchedAddress, error) {
	res := make([]domain.WatchedAddress, 0, len(addresses))
	err := r.store.run(ctx, false, func() error {
		for _, address := range addresses {
			if a, ok := r.store.addresses[address]; ok {
				res = append(res, cloneAddress(a))
			}
		}
		return nil
	})
	return res, err
}

func (r *addressRepositoryImpl) ListAddressesForAccount(
	ctx context.Context, accountID string,
) ([]domain.WatchedAddress, error) {
	res := make([]domain.WatchedAddress, 0)
	err := r.store.run(ctx, false, func() error {
		for _, a := range r.store.addresses {
			if a.AccountID == accountID {
				res = append(res, cloneAddress(a))
			}
		}
		return nil
	})
	sort.Slice(res, func(i, j int) bool {
		if res[i].Chain != res[j].Chain {
			return res[i].Chain < res[j].Chain
		}
		return res[i].Index < res[j].Index
	})
	return res, err
}

func (r *addressRepositoryImpl) UpdateAddress(
	ctx context.Context,
	address string,
	updateFn func(a *domain.WatchedAddress) (*domain.WatchedAddress, error),
) error {
	return r.store.run(ctx, true, func() error {
		a, ok := r.store.addresses[address]
		if !ok {
			return domain.ErrAddressNotFound
		}
		a = cloneAddress(a)
		updated, err := updateFn(&a)
		if err != nil {
			return err
		}
		r.store.addresses[address] = cloneAddress(*updated)
		return nil
	})
}

func (r *addressRepositoryImpl) DeleteAddressesForAccount(
	ctx context.Context, accountID string,
) error {
	return r.store.run(ctx, true, func() error {
		for k, a := range r.store.addresses {
			if a.AccountID == accountID {
				delete(r.store.addresses, k)
			}
		}
		return nil
	})
}

func (r *addressRepositoryImpl) taken(addr domain.WatchedAddress) bool {
	if _, ok := r.store.addresses[addr.Address]; ok {
		return true
	}
	for _, a := range r.store.addresses {
		if a.IsAt(addr.AccountID, addr.Chain, addr.Index) {
			return true
		}
	}
	return false
}
