package application

import (
	"context"
	"fmt"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	discoveryBatchSize = 10
	// Hard ceilings of the scanned index per chain.
	maxExternalIndex = 1000
	maxInternalIndex = 100
)

// ChainDiscovery is the outcome of scanning one chain of an account.
type ChainDiscovery struct {
	Chain     domain.Chain
	Addresses []domain.WatchedAddress
	// LastUsedIndex is the highest index found in use, or domain.NoIndex.
	LastUsedIndex int64
	// NextIndex is the first index following the last used one.
	NextIndex uint32
}

type DiscoveryResult struct {
	External ChainDiscovery
	Internal ChainDiscovery
}

// Addresses returns the discovered addresses of both chains, external
// first.
func (r *DiscoveryResult) Addresses() []domain.WatchedAddress {
	list := make(
		[]domain.WatchedAddress, 0,
		len(r.External.Addresses)+len(r.Internal.Addresses),
	)
	list = append(list, r.External.Addresses...)
	return append(list, r.Internal.Addresses...)
}

// AddressDiscovery scans the external and internal chains of an account for
// used addresses until a gap of unused ones is found.
type AddressDiscovery struct {
	network    ports.NetworkGateway
	derivation ports.DerivationGateway
	repo       ports.RepoManager
}

func NewAddressDiscovery(
	network ports.NetworkGateway,
	derivation ports.DerivationGateway,
	repo ports.RepoManager,
) *AddressDiscovery {
	return &AddressDiscovery{network, derivation, repo}
}

// Discover scans both chains of the account. Chains are scanned in
// parallel, addresses of the same chain in index order. Any derivation or
// network failure aborts the whole discovery.
func (d *AddressDiscovery) Discover(
	ctx context.Context,
	account domain.Account, network domain.Network, gapLimit uint32,
) (*DiscoveryResult, error) {
	if gapLimit == 0 {
		return nil, fmt.Errorf("gap limit must be greater than zero")
	}

	result := &DiscoveryResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := d.discoverChain(gctx, account, network, domain.ExternalChain, gapLimit)
		if err != nil {
			return err
		}
		result.External = *res
		return nil
	})
	g.Go(func() error {
		res, err := d.discoverChain(gctx, account, network, domain.InternalChain, gapLimit)
		if err != nil {
			return err
		}
		result.Internal = *res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debugf(
		"discovered %d external and %d internal addresses for account %s",
		len(result.External.Addresses), len(result.Internal.Addresses), account.ID,
	)
	return result, nil
}

func (d *AddressDiscovery) discoverChain(
	ctx context.Context,
	account domain.Account, network domain.Network,
	chain domain.Chain, gapLimit uint32,
) (*ChainDiscovery, error) {
	ceiling := uint32(maxExternalIndex)
	if chain == domain.InternalChain {
		ceiling = maxInternalIndex
	}
	batchSize := uint32(discoveryBatchSize)
	if gapLimit < batchSize {
		batchSize = gapLimit
	}

	lastUsed := account.Cursor(chain)
	index := uint32(0)
	if lastUsed > 0 {
		index = uint32(lastUsed)
	}
	res := &ChainDiscovery{Chain: chain, LastUsedIndex: lastUsed}
	consecutiveUnused := uint32(0)

	for consecutiveUnused < gapLimit && index <= ceiling {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Addresses are derived one index at a time, so nothing past the
		// end of the gap is ever derived.
		end := index + batchSize
		for ; index < end && index <= ceiling; index++ {
			addr, err := d.derivation.DeriveAddress(
				account.Xpub, network, chain, index,
			)
			if err != nil {
				return nil, &domain.DerivationError{
					Chain: chain, Index: index, Err: err,
				}
			}
			if !d.derivation.ValidateAddress(addr, network) {
				log.Warnf(
					"skipping malformed %s address %s at index %d", chain, addr, index,
				)
				continue
			}

			used, balance, err := d.isUsed(ctx, addr)
			if err != nil {
				return nil, fmt.Errorf(
					"failed to check usage of %s address at index %d: %w",
					chain, index, err,
				)
			}

			if used {
				consecutiveUnused = 0
				res.LastUsedIndex = int64(index)
			}
			if consecutiveUnused < gapLimit {
				res.Addresses = append(res.Addresses, domain.WatchedAddress{
					Address:   addr,
					AccountID: account.ID,
					Chain:     chain,
					Index:     index,
					DerivationPath: d.derivation.DerivationPath(
						network, account.Index, chain, index,
					),
					Label:   addressLabel(account, chain, index),
					Used:    used,
					Balance: balance,
				})
			}
			if !used {
				consecutiveUnused++
			}
			if consecutiveUnused >= gapLimit {
				index++
				break
			}
		}
	}

	res.NextIndex = index - consecutiveUnused
	return res, nil
}

// isUsed reports an address as used if it holds any funds or has any tx in
// its history.
func (d *AddressDiscovery) isUsed(
	ctx context.Context, address string,
) (bool, domain.Balance, error) {
	balance, err := d.network.GetBalance(ctx, address)
	if err != nil {
		return false, domain.Balance{}, err
	}
	if balance.Total > 0 || balance.Confirmed > 0 || balance.Pending > 0 {
		return true, balance, nil
	}

	txs, err := d.network.GetTransactions(ctx, address)
	if err != nil {
		return false, domain.Balance{}, err
	}
	return len(txs) > 0, balance, nil
}

// Persist stores the discovered addresses and advances the account cursors
// in a single db transaction. It returns the addresses that were not
// stored yet.
func (d *AddressDiscovery) Persist(
	ctx context.Context, accountID string, result *DiscoveryResult,
) ([]domain.WatchedAddress, error) {
	res, err := d.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			addrRepo := d.repo.AddressRepository()
			all := result.Addresses()

			known, err := addrRepo.GetAddresses(ctx, addressList(all))
			if err != nil {
				return nil, err
			}
			knownSet := make(map[string]struct{}, len(known))
			for _, a := range known {
				knownSet[a.Address] = struct{}{}
			}
			fresh := make([]domain.WatchedAddress, 0, len(all))
			for _, a := range all {
				if _, ok := knownSet[a.Address]; !ok {
					fresh = append(fresh, a)
				}
			}

			if _, err := addrRepo.AddAddresses(ctx, fresh...); err != nil {
				return nil, err
			}

			if err := d.repo.AccountRepository().UpdateAccount(
				ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
					a.AdvanceCursor(domain.ExternalChain, result.External.LastUsedIndex)
					a.AdvanceCursor(domain.InternalChain, result.Internal.LastUsedIndex)
					return a, nil
				},
			); err != nil {
				return nil, err
			}
			return fresh, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res.([]domain.WatchedAddress), nil
}

// NextAddress returns the first unused address of the chain after the
// cursor, deriving and storing a new one if all known ones are used.
func (d *AddressDiscovery) NextAddress(
	ctx context.Context,
	accountID string, network domain.Network, chain domain.Chain,
) (*domain.WatchedAddress, error) {
	res, err := d.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			account, err := d.repo.AccountRepository().GetAccount(ctx, accountID)
			if err != nil {
				return nil, err
			}
			addresses, err := d.repo.AddressRepository().ListAddressesForAccount(
				ctx, accountID,
			)
			if err != nil {
				return nil, err
			}

			cursor := account.Cursor(chain)
			next := uint32(cursor + 1)
			for _, a := range addresses {
				if a.Chain != chain {
					continue
				}
				if int64(a.Index) > cursor && !a.Used && len(a.TxIDs) == 0 {
					addr := a
					return &addr, nil
				}
				if a.Index >= next {
					next = a.Index + 1
				}
			}

			addr, err := d.derivation.DeriveAddress(account.Xpub, network, chain, next)
			if err != nil {
				return nil, &domain.DerivationError{Chain: chain, Index: next, Err: err}
			}
			wa := domain.WatchedAddress{
				Address:        addr,
				AccountID:      accountID,
				Chain:          chain,
				Index:          next,
				DerivationPath: d.derivation.DerivationPath(network, account.Index, chain, next),
				Label:          addressLabel(*account, chain, next),
			}
			if _, err := d.repo.AddressRepository().AddAddresses(ctx, wa); err != nil {
				return nil, err
			}
			return &wa, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res.(*domain.WatchedAddress), nil
}

func addressLabel(account domain.Account, chain domain.Chain, index uint32) string {
	return fmt.Sprintf("%s/%d/%d", account.ID, uint32(chain), index)
}

func addressList(addresses []domain.WatchedAddress) []string {
	list := make([]string, 0, len(addresses))
	for _, a := range addresses {
		list = append(list, a.Address)
	}
	return list
}
