package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/dashsync/walletsyncd/pkg/explorer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	New       Status = "NEW"
	Waiting   Status = "WAITING"
	Processed Status = "PROCESSED"
)

type Status string

type observableStatus struct {
	sync.RWMutex
	status Status
}

func newObservableStatus() *observableStatus {
	return &observableStatus{
		status: New,
	}
}

func (o *observableStatus) Get() Status {
	o.RLock()
	defer o.RUnlock()
	return o.status
}

func (o *observableStatus) Set(status Status) {
	o.Lock()
	defer o.Unlock()
	o.status = status
}

// AddressObservable polls balance and history of an address.
type AddressObservable struct {
	Address string
	Label   string
}

func NewAddressObservable(address, label string) *AddressObservable {
	return &AddressObservable{address, label}
}

func (a *AddressObservable) observe(
	ctx context.Context,
	explorerSvc explorer.Service,
	rateLimiter *rate.Limiter,
) (Event, error) {
	if err := rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	balance, err := explorerSvc.GetAddressBalance(ctx, a.Address)
	if err != nil {
		return nil, err
	}

	if err := rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	txs, err := explorerSvc.GetTransactionsForAddress(ctx, a.Address)
	if err != nil {
		return nil, err
	}

	return AddressEvent{
		Address: a.Address,
		Label:   a.Label,
		Balance: *balance,
		Txs:     txs,
	}, nil
}

func (a *AddressObservable) key() string {
	return a.Address
}

// TransactionObservable polls the status of a tx.
type TransactionObservable struct {
	TxID string
}

func NewTransactionObservable(txid string) *TransactionObservable {
	return &TransactionObservable{txid}
}

func (t *TransactionObservable) observe(
	ctx context.Context,
	explorerSvc explorer.Service,
	rateLimiter *rate.Limiter,
) (Event, error) {
	if err := rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	status, err := explorerSvc.GetTransactionStatus(ctx, t.TxID)
	if err != nil {
		return nil, err
	}

	eventType := TransactionUnconfirmed
	if status.Confirmed {
		eventType = TransactionConfirmed
	}
	return TransactionEvent{
		EventType:   eventType,
		TxID:        t.TxID,
		BlockHeight: status.BlockHeight,
		BlockHash:   status.BlockHash,
		BlockTime:   status.BlockTime,
	}, nil
}

func (t *TransactionObservable) key() string {
	return t.TxID
}

type observableHandler struct {
	observable       Observable
	explorerSvc      explorer.Service
	interval         time.Duration
	eventChan        chan Event
	errChan          chan error
	rateLimiter      *rate.Limiter
	observableStatus *observableStatus
	cancel           context.CancelFunc
	done             chan struct{}
}

func newObservableHandler(
	observable Observable,
	explorerSvc explorer.Service,
	interval time.Duration,
	eventChan chan Event,
	errChan chan error,
	rateLimiter *rate.Limiter,
) *observableHandler {
	return &observableHandler{
		observable:       observable,
		explorerSvc:      explorerSvc,
		interval:         interval,
		eventChan:        eventChan,
		errChan:          errChan,
		rateLimiter:      rateLimiter,
		observableStatus: newObservableStatus(),
		done:             make(chan struct{}),
	}
}

func (oh *observableHandler) start() {
	ctx, cancel := context.WithCancel(context.Background())
	oh.cancel = cancel
	oh.logAction("start")

	go func() {
		defer close(oh.done)

		ticker := time.NewTicker(oh.interval)
		defer ticker.Stop()

		oh.observe(ctx)
		for {
			select {
			case <-ticker.C:
				if oh.observableStatus.Get() != Waiting {
					oh.observe(ctx)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (oh *observableHandler) observe(ctx context.Context) {
	oh.observableStatus.Set(Waiting)
	defer oh.observableStatus.Set(Processed)

	event, err := oh.observable.observe(ctx, oh.explorerSvc, oh.rateLimiter)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		select {
		case oh.errChan <- err:
		default:
			log.WithError(err).Debugf("dropping crawler error for %s", oh.observable.key())
		}
		return
	}

	select {
	case oh.eventChan <- event:
	case <-ctx.Done():
	}
}

func (oh *observableHandler) stop() {
	oh.logAction("stop")
	if oh.cancel != nil {
		oh.cancel()
	}
	<-oh.done
}

func (oh *observableHandler) logAction(action string) {
	obs := oh.observable
	switch obs.(type) {
	case *AddressObservable:
		log.Debugf("%s observing address: %v", action, obs.key())
	case *TransactionObservable:
		log.Debugf("%s observing tx: %v", action, obs.key())
	}
}
