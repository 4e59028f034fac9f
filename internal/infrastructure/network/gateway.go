// Package network implements the network gateway on top of a REST block
// explorer. Watched addresses are polled by the crawler and every change
// between two observations is turned into a network event.
package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/pkg/crawler"
	"github.com/dashsync/walletsyncd/pkg/explorer"
	"github.com/dashsync/walletsyncd/pkg/wallet"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
)

const eventQueueMaxSize = 256

type Opts struct {
	ExplorerSvc       explorer.Service
	Network           domain.Network
	CrawlInterval     time.Duration
	RequestsPerSecond float64
	Burst             int
	Clock             clock.Clock
}

func (o Opts) validate() error {
	if o.ExplorerSvc == nil {
		return fmt.Errorf("missing explorer service")
	}
	if !o.Network.IsValid() {
		return domain.ErrInvalidNetwork
	}
	return nil
}

type gateway struct {
	explorerSvc explorer.Service
	params      *chaincfg.Params
	crawlerOpts crawler.Opts
	clock       clock.Clock
	events      chan ports.Event

	lock       sync.RWMutex
	connected  bool
	crawlerSvc crawler.Service
	goroutines *fn.GoroutineManager
	tipHeight  uint32
	watched    map[string]string
	snapshots  map[string]*addressSnapshot
	mempool    map[string]struct{}
}

// addressSnapshot is the last observed state of a watched address.
type addressSnapshot struct {
	balance explorer.AddressBalance
	txs     map[string]bool
}

func NewGateway(opts Opts) (ports.NetworkGateway, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	params, err := wallet.NetworkParams(opts.Network.String())
	if err != nil {
		return nil, err
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	return &gateway{
		explorerSvc: opts.ExplorerSvc,
		params:      params,
		crawlerOpts: crawler.Opts{
			ExplorerSvc:       opts.ExplorerSvc,
			Interval:          opts.CrawlInterval,
			RequestsPerSecond: opts.RequestsPerSecond,
			Burst:             opts.Burst,
		},
		clock:     clk,
		events:    make(chan ports.Event, eventQueueMaxSize),
		watched:   make(map[string]string),
		snapshots: make(map[string]*addressSnapshot),
		mempool:   make(map[string]struct{}),
	}, nil
}

// Connect checks the explorer is reachable and starts polling every address
// registered so far.
func (g *gateway) Connect(ctx context.Context) error {
	g.lock.Lock()
	if g.connected {
		g.lock.Unlock()
		return nil
	}

	height, err := g.explorerSvc.GetBlockHeight(ctx)
	if err != nil {
		g.lock.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNetwork, err)
	}

	opts := g.crawlerOpts
	opts.ErrorHandler = func(err error) {
		log.WithError(err).Debug("explorer observation failed")
	}
	crawlerSvc := crawler.NewService(opts)
	goroutines := fn.NewGoroutineManager()

	go crawlerSvc.Start()
	goroutines.Go(context.Background(), func(ctx context.Context) {
		g.listen(ctx, crawlerSvc)
	})
	for address, label := range g.watched {
		crawlerSvc.AddObservable(crawler.NewAddressObservable(address, label))
	}
	for txid := range g.mempool {
		crawlerSvc.AddObservable(crawler.NewTransactionObservable(txid))
	}

	g.crawlerSvc = crawlerSvc
	g.goroutines = goroutines
	g.tipHeight = height
	g.connected = true
	g.lock.Unlock()

	log.Infof("connected to explorer, tip height %d", height)
	g.trySend(ports.ConnectionEvent{Connected: true})
	return nil
}

// Disconnect stops polling. The registered addresses are kept and polled
// again at the next Connect.
func (g *gateway) Disconnect() error {
	g.lock.Lock()
	if !g.connected {
		g.lock.Unlock()
		return nil
	}
	crawlerSvc := g.crawlerSvc
	goroutines := g.goroutines
	g.crawlerSvc = nil
	g.goroutines = nil
	g.connected = false
	g.lock.Unlock()

	crawlerSvc.Stop()
	goroutines.Stop()

	log.Info("disconnected from explorer")
	g.trySend(ports.ConnectionEvent{Connected: false})
	return nil
}

func (g *gateway) IsConnected() bool {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.connected
}

// GetBalance maps the explorer funds of the address to a balance. A
// negative mempool delta is spending confirmed funds and is deducted from
// the confirmed bucket.
func (g *gateway) GetBalance(
	ctx context.Context, address string,
) (domain.Balance, error) {
	if !g.IsConnected() {
		return domain.Balance{}, domain.ErrNotConnected
	}

	b, err := g.explorerSvc.GetAddressBalance(ctx, address)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("%w: %s", domain.ErrNetwork, err)
	}
	return toBalance(*b), nil
}

func (g *gateway) GetTransactions(
	ctx context.Context, address string,
) ([]ports.Tx, error) {
	if !g.IsConnected() {
		return nil, domain.ErrNotConnected
	}

	height, err := g.explorerSvc.GetBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNetwork, err)
	}
	g.setTip(height)

	txs, err := g.explorerSvc.GetTransactionsForAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNetwork, err)
	}

	now := g.clock.Now()
	res := make([]ports.Tx, 0, len(txs))
	for _, tx := range txs {
		res = append(res, toTx(tx, address, height, now))
	}
	return res, nil
}

// WatchAddress starts polling the address. Registering an address already
// watched has no effect.
func (g *gateway) WatchAddress(ctx context.Context, address, label string) error {
	if !wallet.ValidateAddress(address, g.params) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	if !g.connected {
		return domain.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.watched[address] = label
	g.crawlerSvc.AddObservable(crawler.NewAddressObservable(address, label))
	return nil
}

func (g *gateway) SyncProgress(ctx context.Context) (ports.ProgressStream, error) {
	if !g.IsConnected() {
		return nil, domain.ErrNotConnected
	}
	return newProgressStream(ctx, g), nil
}

func (g *gateway) Events() <-chan ports.Event {
	return g.events
}

// listen turns the crawler observations into network events until ctx is
// done or the crawler quits.
func (g *gateway) listen(ctx context.Context, crawlerSvc crawler.Service) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-crawlerSvc.GetEventChannel():
			var out []ports.Event
			switch e := event.(type) {
			case crawler.QuitEvent:
				return
			case crawler.AddressEvent:
				out = g.handleAddressEvent(crawlerSvc, e)
			case crawler.TransactionEvent:
				out = g.handleTransactionEvent(crawlerSvc, e)
			}
			for _, ev := range out {
				select {
				case g.events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleAddressEvent diffs the observation against the previous one. The
// first observation of an address only records its state.
func (g *gateway) handleAddressEvent(
	crawlerSvc crawler.Service, e crawler.AddressEvent,
) []ports.Event {
	g.lock.Lock()
	defer g.lock.Unlock()

	current := &addressSnapshot{
		balance: e.Balance,
		txs:     make(map[string]bool, len(e.Txs)),
	}
	for _, tx := range e.Txs {
		current.txs[tx.TxID] = tx.Status.Confirmed
	}

	previous, ok := g.snapshots[e.Address]
	g.snapshots[e.Address] = current
	if !ok {
		return nil
	}

	now := g.clock.Now()
	events := make([]ports.Event, 0)
	for _, tx := range e.Txs {
		wasConfirmed, known := previous.txs[tx.TxID]
		switch {
		case !known && tx.Status.Confirmed:
			events = append(events, ports.TransactionEvent{
				EventType: ports.TransactionReceived,
				Tx:        toTx(tx, e.Address, g.tipHeight, now),
			})
		case !known:
			g.mempool[tx.TxID] = struct{}{}
			crawlerSvc.AddObservable(crawler.NewTransactionObservable(tx.TxID))
			events = append(events, ports.TransactionEvent{
				EventType: ports.MempoolTransactionAdded,
				Tx:        toTx(tx, e.Address, g.tipHeight, now),
			})
		case !wasConfirmed && tx.Status.Confirmed:
			if ev, ok := g.confirm(crawlerSvc, tx.TxID, tx.Status.BlockHeight); ok {
				events = append(events, ev)
			}
		}
	}
	for txid, wasConfirmed := range previous.txs {
		if _, ok := current.txs[txid]; ok || wasConfirmed {
			continue
		}
		if _, ok := g.mempool[txid]; !ok {
			continue
		}
		delete(g.mempool, txid)
		crawlerSvc.RemoveObservable(crawler.NewTransactionObservable(txid))
		events = append(events, ports.MempoolRemovedEvent{TxID: txid})
	}

	if previous.balance != current.balance {
		events = append(events, ports.BalanceEvent{
			Address: e.Address,
			Balance: toBalance(current.balance),
		})
	}
	return events
}

func (g *gateway) handleTransactionEvent(
	crawlerSvc crawler.Service, e crawler.TransactionEvent,
) []ports.Event {
	if e.EventType != crawler.TransactionConfirmed {
		return nil
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	if ev, ok := g.confirm(crawlerSvc, e.TxID, e.BlockHeight); ok {
		return []ports.Event{ev}
	}
	return nil
}

// confirm must be called with the lock held. Every mempool tx is confirmed
// at most once, whichever observation sees it first.
func (g *gateway) confirm(
	crawlerSvc crawler.Service, txid string, height uint32,
) (ports.Event, bool) {
	if _, ok := g.mempool[txid]; !ok {
		return nil, false
	}
	delete(g.mempool, txid)
	crawlerSvc.RemoveObservable(crawler.NewTransactionObservable(txid))

	if height > g.tipHeight {
		g.tipHeight = height
	}
	for _, s := range g.snapshots {
		if _, ok := s.txs[txid]; ok {
			s.txs[txid] = true
		}
	}
	return ports.MempoolConfirmedEvent{TxID: txid, BlockHeight: height}, true
}

func (g *gateway) watchedAddresses() []string {
	g.lock.RLock()
	defer g.lock.RUnlock()

	addresses := make([]string, 0, len(g.watched))
	for address := range g.watched {
		addresses = append(addresses, address)
	}
	return addresses
}

func (g *gateway) setTip(height uint32) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if height > g.tipHeight {
		g.tipHeight = height
	}
}

func (g *gateway) trySend(event ports.Event) {
	select {
	case g.events <- event:
	default:
		log.Warnf("event queue full, dropping %s event", event.Type())
	}
}

func toBalance(b explorer.AddressBalance) domain.Balance {
	confirmed := b.Confirmed
	var mempool uint64
	if b.MempoolDelta >= 0 {
		mempool = uint64(b.MempoolDelta)
	} else {
		spent := uint64(-b.MempoolDelta)
		if spent > confirmed {
			spent = confirmed
		}
		confirmed -= spent
	}
	return domain.NewBalance(confirmed, 0, mempool)
}

func toTx(
	tx explorer.Transaction, address string, tipHeight uint32, now time.Time,
) ports.Tx {
	res := ports.Tx{
		TxID:      tx.TxID,
		Amount:    tx.NetAmount(address),
		Fee:       tx.Fee,
		Timestamp: now.Unix(),
		Size:      tx.Size,
		Version:   tx.Version,
		Addresses: []string{address},
	}
	if tx.Status.Confirmed {
		height := tx.Status.BlockHeight
		res.Height = &height
		res.Confirmations = 1
		if tipHeight >= height {
			res.Confirmations = tipHeight - height + 1
		}
		if tx.Status.BlockTime > 0 {
			res.Timestamp = tx.Status.BlockTime
		}
	}
	return res
}
