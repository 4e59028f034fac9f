package dbbadger

import (
	"context"
	"errors"
	"sort"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

type addressRepositoryImpl struct {
	store *badgerhold.Store
}

// NewAddressRepositoryImpl initialize a badger implementation of the domain.AddressRepository
func NewAddressRepositoryImpl(store *badgerhold.Store) domain.AddressRepository {
	return addressRepositoryImpl{store}
}

func (r addressRepositoryImpl) AddAddresses(
	ctx context.Context, addresses ...domain.WatchedAddress,
) (int, error) {
	count := 0
	err := withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		byAccount := make(map[string][]domain.WatchedAddress)

		for _, addr := range addresses {
			known, ok := byAccount[addr.AccountID]
			if !ok {
				list, err := r.findForAccount(tx, addr.AccountID)
				if err != nil {
					return err
				}
				known = list
			}

			if taken(known, addr) {
				continue
			}

			if err := r.store.TxInsert(tx, addr.Address, addr); err != nil {
				if errors.Is(err, badgerhold.ErrKeyExists) {
					continue
				}
				return err
			}
			byAccount[addr.AccountID] = append(known, addr)
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r addressRepositoryImpl) GetAddress(
	ctx context.Context, address string,
) (*domain.WatchedAddress, error) {
	var addr *domain.WatchedAddress
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		a, err := r.getAddress(tx, address)
		addr = a
		return err
	})
	return addr, err
}

func (r addressRepositoryImpl) GetAddresses(
	ctx context.Context, addresses []string,
) ([]domain.WatchedAddress, error) {
	res := make([]domain.WatchedAddress, 0, len(addresses))
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		for _, address := range addresses {
			addr, err := r.getAddress(tx, address)
			if err != nil {
				if errors.Is(err, domain.ErrAddressNotFound) {
					continue
				}
				return err
			}
			res = append(res, *addr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r addressRepositoryImpl) ListAddressesForAccount(
	ctx context.Context, accountID string,
) ([]domain.WatchedAddress, error) {
	var addresses []domain.WatchedAddress
	err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		list, err := r.findForAccount(tx, accountID)
		addresses = list
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(addresses, func(i, j int) bool {
		if addresses[i].Chain != addresses[j].Chain {
			return addresses[i].Chain < addresses[j].Chain
		}
		return addresses[i].Index < addresses[j].Index
	})
	return addresses, nil
}

func (r addressRepositoryImpl) UpdateAddress(
	ctx context.Context,
	address string,
	updateFn func(a *domain.WatchedAddress) (*domain.WatchedAddress, error),
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		addr, err := r.getAddress(tx, address)
		if err != nil {
			return err
		}

		updatedAddr, err := updateFn(addr)
		if err != nil {
			return err
		}

		return r.store.TxUpdate(tx, address, *updatedAddr)
	})
}

func (r addressRepositoryImpl) DeleteAddressesForAccount(
	ctx context.Context, accountID string,
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		query := badgerhold.Where("AccountID").Eq(accountID)
		return r.store.TxDeleteMatching(tx, domain.WatchedAddress{}, query)
	})
}

func (r addressRepositoryImpl) getAddress(
	tx *badger.Txn, address string,
) (*domain.WatchedAddress, error) {
	var addr domain.WatchedAddress
	if err := r.store.TxGet(tx, address, &addr); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrAddressNotFound
		}
		return nil, err
	}
	return &addr, nil
}

func (r addressRepositoryImpl) findForAccount(
	tx *badger.Txn, accountID string,
) ([]domain.WatchedAddress, error) {
	addresses := make([]domain.WatchedAddress, 0)
	query := badgerhold.Where("AccountID").Eq(accountID)
	if err := r.store.TxFind(tx, &addresses, query); err != nil {
		return nil, err
	}
	return addresses, nil
}

func taken(known []domain.WatchedAddress, addr domain.WatchedAddress) bool {
	for _, k := range known {
		if k.Address == addr.Address || k.IsAt(addr.AccountID, addr.Chain, addr.Index) {
			return true
		}
	}
	return false
}
