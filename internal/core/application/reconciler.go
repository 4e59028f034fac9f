package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const balanceFetchConcurrency = 4

// Reconciler keeps stored transactions and balances consistent with what
// the network reports. Every mutation is idempotent by txid.
type Reconciler struct {
	network ports.NetworkGateway
	repo    ports.RepoManager
	clock   clock.Clock

	lookupAttempts  int
	lookupBaseDelay time.Duration
}

func NewReconciler(
	network ports.NetworkGateway, repo ports.RepoManager, clk clock.Clock,
	lookupAttempts int, lookupBaseDelay time.Duration,
) *Reconciler {
	if lookupAttempts < 1 {
		lookupAttempts = 1
	}
	return &Reconciler{
		network:         network,
		repo:            repo,
		clock:           clk,
		lookupAttempts:  lookupAttempts,
		lookupBaseDelay: lookupBaseDelay,
	}
}

// IngestTransaction stores the tx and links it to the account and to every
// watched address of the account it involves. If the txid is already
// stored only its confirmation data is updated. It returns whether a new
// record was created.
func (r *Reconciler) IngestTransaction(
	ctx context.Context, accountID string, tx ports.Tx,
) (bool, error) {
	res, err := r.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			return r.ingest(ctx, accountID, tx)
		},
	)
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (r *Reconciler) ingest(
	ctx context.Context, accountID string, tx ports.Tx,
) (bool, error) {
	txRepo := r.repo.TransactionRepository()
	now := r.clock.Now()

	created := false
	addresses, err := r.repo.AddressRepository().GetAddresses(ctx, tx.Addresses)
	if err != nil {
		return false, err
	}
	linked := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if a.AccountID == accountID {
			linked = append(linked, a.Address)
		}
	}

	_, err = txRepo.GetTransaction(ctx, tx.TxID)
	switch {
	case err == nil:
		if err := txRepo.UpdateTransaction(
			ctx, tx.TxID, func(t *domain.Transaction) (*domain.Transaction, error) {
				t.ApplyUpdate(tx.IsConfirmed(), tx.Height, tx.InstantLocked)
				t.LinkAccount(accountID)
				for _, a := range linked {
					t.LinkAddress(a)
				}
				return t, nil
			},
		); err != nil {
			return false, err
		}

	case errors.Is(err, domain.ErrTransactionNotFound):
		record := newTransactionRecord(tx)
		record.LinkAccount(accountID)
		for _, a := range linked {
			record.LinkAddress(a)
		}
		if err := txRepo.AddTransaction(ctx, record); err != nil {
			return false, err
		}
		created = true

	default:
		return false, err
	}

	if err := r.repo.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			a.LinkTx(tx.TxID)
			return a, nil
		},
	); err != nil {
		return false, err
	}

	for _, address := range linked {
		if err := r.repo.AddressRepository().UpdateAddress(
			ctx, address, func(a *domain.WatchedAddress) (*domain.WatchedAddress, error) {
				a.LinkTx(tx.TxID, now)
				return a, nil
			},
		); err != nil {
			return false, err
		}
	}

	return created, nil
}

// ConfirmTransaction marks the stored tx as mined at the given height.
func (r *Reconciler) ConfirmTransaction(
	ctx context.Context, txid string, height uint32,
) error {
	_, err := r.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			return nil, r.repo.TransactionRepository().UpdateTransaction(
				ctx, txid, func(t *domain.Transaction) (*domain.Transaction, error) {
					t.Confirm(height)
					return t, nil
				},
			)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to confirm tx %s: %w", txid, err)
	}
	return nil
}

// RemoveTransaction deletes the tx and unlinks it from every account and
// address referencing it. Removing an unknown tx is a no-op.
func (r *Reconciler) RemoveTransaction(ctx context.Context, txid string) error {
	_, err := r.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			tx, err := r.repo.TransactionRepository().GetTransaction(ctx, txid)
			if err != nil {
				if errors.Is(err, domain.ErrTransactionNotFound) {
					log.Debugf("tx %s to remove not found, skipping", txid)
					return nil, nil
				}
				return nil, err
			}

			for _, accountID := range tx.AccountIDs {
				if err := r.repo.AccountRepository().UpdateAccount(
					ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
						a.UnlinkTx(txid)
						return a, nil
					},
				); err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
					return nil, err
				}
			}
			for _, address := range tx.Addresses {
				if err := r.repo.AddressRepository().UpdateAddress(
					ctx, address, func(a *domain.WatchedAddress) (*domain.WatchedAddress, error) {
						a.UnlinkTx(txid)
						return a, nil
					},
				); err != nil && !errors.Is(err, domain.ErrAddressNotFound) {
					return nil, err
				}
			}

			return nil, r.repo.TransactionRepository().DeleteTransaction(ctx, txid)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to remove tx %s: %w", txid, err)
	}
	return nil
}

// RecomputeAccountBalance fetches the balance of every address of the
// account and stores the new address and account balances. The account
// balance is the sum of its address balances.
func (r *Reconciler) RecomputeAccountBalance(
	ctx context.Context, accountID string,
) (domain.Balance, error) {
	addresses, err := r.repo.AddressRepository().ListAddressesForAccount(
		ctx, accountID,
	)
	if err != nil {
		return domain.Balance{}, err
	}

	balances := make([]domain.Balance, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceFetchConcurrency)
	for i := range addresses {
		i := i
		g.Go(func() error {
			b, err := r.network.GetBalance(gctx, addresses[i].Address)
			if err != nil {
				return fmt.Errorf(
					"failed to get balance of %s: %w", addresses[i].Address, err,
				)
			}
			balances[i] = b.WithTotal()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Balance{}, err
	}

	total := domain.SumBalances(balances...)

	if _, err := r.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			errs := make([]error, 0)
			for i, addr := range addresses {
				balance := balances[i]
				if err := r.repo.AddressRepository().UpdateAddress(
					ctx, addr.Address,
					func(a *domain.WatchedAddress) (*domain.WatchedAddress, error) {
						a.Balance = balance
						if balance.Total > 0 {
							a.Used = true
						}
						return a, nil
					},
				); err != nil {
					errs = append(errs, err)
				}
			}
			if err := r.repo.AccountRepository().UpdateAccount(
				ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
					a.Balance = total
					return a, nil
				},
			); err != nil {
				errs = append(errs, err)
			}
			return nil, domain.NewAggregateError("update balances", errs)
		},
	); err != nil {
		return domain.Balance{}, err
	}

	return total, nil
}

// UpdateTransactions fetches the history of every address of the account
// and ingests the txs not stored yet. It returns the number of ingested
// txs.
func (r *Reconciler) UpdateTransactions(
	ctx context.Context, accountID string,
) (int, error) {
	addresses, err := r.repo.AddressRepository().ListAddressesForAccount(
		ctx, accountID,
	)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, addr := range addresses {
		txs, err := r.network.GetTransactions(ctx, addr.Address)
		if err != nil {
			return count, fmt.Errorf(
				"failed to get txs of %s: %w", addr.Address, err,
			)
		}

		for _, tx := range txs {
			exists, err := r.txExists(ctx, tx.TxID)
			if err != nil {
				return count, err
			}
			if exists {
				continue
			}
			if len(tx.Addresses) == 0 {
				tx.Addresses = []string{addr.Address}
			}
			if _, err := r.IngestTransaction(ctx, accountID, tx); err != nil {
				return count, err
			}
			count++
		}
	}

	if count > 0 {
		log.Debugf("ingested %d new txs for account %s", count, accountID)
	}
	return count, nil
}

// txExists looks the txid up in storage, retrying transient failures with
// exponential backoff.
func (r *Reconciler) txExists(ctx context.Context, txid string) (bool, error) {
	exists := false
	attempts, err := retryWithBackoff(
		ctx, r.clock, r.lookupAttempts, r.lookupBaseDelay, func() error {
			_, err := r.repo.TransactionRepository().GetTransaction(ctx, txid)
			if err == nil {
				exists = true
				return nil
			}
			if errors.Is(err, domain.ErrTransactionNotFound) {
				exists = false
				return nil
			}
			log.WithError(err).Debugf("failed to look up tx %s", txid)
			return err
		},
	)
	if err != nil {
		return false, &domain.TxLookupError{TxID: txid, Attempts: attempts, Err: err}
	}
	return exists, nil
}

// UpdateMempoolTransactionCount counts the account txs still unconfirmed
// and stores the result on the account.
func (r *Reconciler) UpdateMempoolTransactionCount(
	ctx context.Context, accountID string,
) (int, error) {
	res, err := r.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			account, err := r.repo.AccountRepository().GetAccount(ctx, accountID)
			if err != nil {
				return nil, err
			}
			txs, err := r.repo.TransactionRepository().GetTransactions(
				ctx, account.TxIDs,
			)
			if err != nil {
				return nil, err
			}

			count := 0
			for _, tx := range txs {
				if tx.IsMempool() {
					count++
				}
			}
			if err := r.repo.AccountRepository().UpdateAccount(
				ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
					a.MempoolTxCount = count
					return a, nil
				},
			); err != nil {
				return nil, err
			}
			return count, nil
		},
	)
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

func newTransactionRecord(tx ports.Tx) *domain.Transaction {
	record := &domain.Transaction{
		TxID:          tx.TxID,
		Timestamp:     tx.Timestamp,
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		Confirmations: tx.Confirmations,
		InstantLocked: tx.InstantLocked,
		Raw:           tx.Raw,
		Size:          tx.Size,
		Version:       tx.Version,
	}
	if tx.Height != nil {
		record.Confirm(*tx.Height)
	} else if tx.IsConfirmed() && record.Confirmations < 1 {
		record.Confirmations = 1
	}
	return record
}
