package application

import (
	"context"
	"fmt"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// EventDispatcher routes every network event to exactly one handler.
type EventDispatcher struct {
	reconciler *Reconciler
	sync       *SyncController
	repo       ports.RepoManager

	activeAccount      func() (string, bool)
	onConnectionChange func(ctx context.Context, connected bool)
	onAccountChange    func(ctx context.Context, accountID string)
}

func NewEventDispatcher(
	reconciler *Reconciler,
	sync *SyncController,
	repo ports.RepoManager,
	activeAccount func() (string, bool),
) *EventDispatcher {
	return &EventDispatcher{
		reconciler:    reconciler,
		sync:          sync,
		repo:          repo,
		activeAccount: activeAccount,
	}
}

// OnConnectionChange registers the handler of connection status events.
func (d *EventDispatcher) OnConnectionChange(
	handler func(ctx context.Context, connected bool),
) {
	d.onConnectionChange = handler
}

// OnAccountChange registers the handler called after an event changed the
// stored state of an account.
func (d *EventDispatcher) OnAccountChange(
	handler func(ctx context.Context, accountID string),
) {
	d.onAccountChange = handler
}

// Run dispatches events until the channel is closed or ctx is done.
// Failures are logged and do not stop the loop.
func (d *EventDispatcher) Run(ctx context.Context, events <-chan ports.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := d.Dispatch(ctx, event); err != nil {
				log.WithError(err).Warnf("failed to handle %s event", event.Type())
			}
		}
	}
}

func (d *EventDispatcher) Dispatch(ctx context.Context, event ports.Event) error {
	switch e := event.(type) {
	case ports.ConnectionEvent:
		if d.onConnectionChange != nil {
			d.onConnectionChange(ctx, e.Connected)
		}
		return nil

	case ports.ProgressEvent:
		if !d.sync.UpdateProgress(e.SessionID, e.Progress) {
			log.Debugf("dropping progress of stale sync session %q", e.SessionID)
		}
		return nil

	case ports.BalanceEvent:
		accountID, ok := d.activeAccount()
		if !ok {
			return domain.ErrNoContext
		}
		if _, err := d.reconciler.RecomputeAccountBalance(ctx, accountID); err != nil {
			return err
		}
		d.accountChanged(ctx, accountID)
		return nil

	case ports.TransactionEvent:
		accountID, ok := d.activeAccount()
		if !ok {
			return domain.ErrNoContext
		}
		involved, err := d.involvesAccount(ctx, accountID, e.Tx)
		if err != nil {
			return err
		}
		if !involved {
			log.Debugf("tx %s does not involve account %s, skipping", e.Tx.TxID, accountID)
			return nil
		}
		if _, err := d.reconciler.IngestTransaction(ctx, accountID, e.Tx); err != nil {
			return err
		}
		if _, err := d.reconciler.UpdateMempoolTransactionCount(ctx, accountID); err != nil {
			log.WithError(err).Debugf("failed to refresh mempool tx count")
		}
		d.accountChanged(ctx, accountID)
		return nil

	case ports.MempoolConfirmedEvent:
		if err := d.reconciler.ConfirmTransaction(ctx, e.TxID, e.BlockHeight); err != nil {
			return err
		}
		if accountID, ok := d.activeAccount(); ok {
			if _, err := d.reconciler.UpdateMempoolTransactionCount(ctx, accountID); err != nil {
				log.WithError(err).Debugf("failed to refresh mempool tx count")
			}
			d.accountChanged(ctx, accountID)
		}
		return nil

	case ports.MempoolRemovedEvent:
		if err := d.reconciler.RemoveTransaction(ctx, e.TxID); err != nil {
			return err
		}
		if accountID, ok := d.activeAccount(); ok {
			if _, err := d.reconciler.UpdateMempoolTransactionCount(ctx, accountID); err != nil {
				log.WithError(err).Debugf("failed to refresh mempool tx count")
			}
			d.accountChanged(ctx, accountID)
		}
		return nil

	default:
		return fmt.Errorf("unknown event type %T", event)
	}
}

func (d *EventDispatcher) involvesAccount(
	ctx context.Context, accountID string, tx ports.Tx,
) (bool, error) {
	addresses, err := d.repo.AddressRepository().GetAddresses(ctx, tx.Addresses)
	if err != nil {
		return false, err
	}
	for _, a := range addresses {
		if a.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (d *EventDispatcher) accountChanged(ctx context.Context, accountID string) {
	if d.onAccountChange != nil {
		d.onAccountChange(ctx, accountID)
	}
}
