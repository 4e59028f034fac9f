package application

import (
	"context"
	"sync"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	log "github.com/sirupsen/logrus"
)

// WatchManager registers addresses with the network, keeps track of those
// that failed and periodically checks that every known address is still
// watched.
type WatchManager struct {
	network    ports.NetworkGateway
	repo       ports.RepoManager
	clock      clock.Clock
	retryDelay time.Duration
	goroutines *fn.GoroutineManager

	onChange func()

	lock    sync.Mutex
	pending map[string]*domain.PendingWatchEntry

	verifyLock   sync.Mutex
	verifyPass   uint64
	verifyCancel context.CancelFunc
	status       domain.VerificationStatus
}

func NewWatchManager(
	network ports.NetworkGateway, repo ports.RepoManager,
	clk clock.Clock, retryDelay time.Duration,
) *WatchManager {
	return &WatchManager{
		network:    network,
		repo:       repo,
		clock:      clk,
		retryDelay: retryDelay,
		goroutines: fn.NewGoroutineManager(),
		pending:    make(map[string]*domain.PendingWatchEntry),
	}
}

// OnChange registers the handler called whenever the pending set or the
// verification status changes.
func (m *WatchManager) OnChange(handler func()) {
	m.onChange = handler
}

// RegisterAddresses registers every address in order and returns the
// failures. Recoverable failures are added to the account's pending set,
// successful registrations are removed from it.
func (m *WatchManager) RegisterAddresses(
	ctx context.Context, addresses []domain.WatchedAddress, accountID string,
) []*domain.WatchError {
	failures := make([]*domain.WatchError, 0)
	for _, addr := range addresses {
		err := m.network.WatchAddress(ctx, addr.Address, addr.Label)
		if err == nil {
			m.removePending(accountID, addr.Address)
			continue
		}

		werr := domain.NewWatchError(addr.Address, err)
		failures = append(failures, werr)
		if !werr.Recoverable() {
			log.WithError(err).Warnf(
				"address %s rejected by network, not retrying", addr.Address,
			)
			m.removePending(accountID, addr.Address)
			continue
		}
		m.addPending(accountID, addr, err)
	}

	if len(failures) > 0 {
		log.Debugf(
			"failed to watch %d/%d addresses of account %s",
			len(failures), len(addresses), accountID,
		)
	}
	m.notify()
	return failures
}

// ScheduleRetry tries once more to register the given addresses after the
// retry delay. Addresses failing again stay pending.
func (m *WatchManager) ScheduleRetry(
	addresses []domain.WatchedAddress, accountID string,
) bool {
	if len(addresses) == 0 {
		return false
	}
	return m.goroutines.Go(context.Background(), func(ctx context.Context) {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.TickAfter(m.retryDelay):
		}

		failures := m.RegisterAddresses(ctx, addresses, accountID)
		if len(failures) > 0 {
			log.Warnf(
				"%d addresses of account %s still not watched after retry",
				len(failures), accountID,
			)
		}
	})
}

// RetryPending schedules a retry of every pending address of the account.
func (m *WatchManager) RetryPending(accountID string) bool {
	m.lock.Lock()
	entry, ok := m.pending[accountID]
	var list []domain.WatchedAddress
	if ok {
		list = entry.List()
	}
	m.lock.Unlock()

	return m.ScheduleRetry(list, accountID)
}

func (m *WatchManager) PendingCount(accountID string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	if entry, ok := m.pending[accountID]; ok {
		return entry.Len()
	}
	return 0
}

func (m *WatchManager) PendingAddresses(accountID string) []domain.WatchedAddress {
	m.lock.Lock()
	defer m.lock.Unlock()

	if entry, ok := m.pending[accountID]; ok {
		return entry.List()
	}
	return nil
}

// ResetAccount drops the pending set of the account.
func (m *WatchManager) ResetAccount(accountID string) {
	m.lock.Lock()
	delete(m.pending, accountID)
	m.lock.Unlock()
	m.notify()
}

// StartPeriodicVerification runs a verification pass of the account returned
// by activeAccount at every tick, until Stop is called.
func (m *WatchManager) StartPeriodicVerification(
	t ticker.Ticker, activeAccount func() (string, bool),
) bool {
	return m.goroutines.Go(context.Background(), func(ctx context.Context) {
		t.Resume()
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.Ticks():
				accountID, ok := activeAccount()
				if !ok {
					continue
				}
				m.VerifyNow(accountID)
			}
		}
	})
}

// VerifyNow starts a verification pass of the account in background. A pass
// still running is superseded and its outcome ignored.
func (m *WatchManager) VerifyNow(accountID string) bool {
	m.verifyLock.Lock()
	if m.verifyCancel != nil {
		m.verifyCancel()
	}
	m.verifyPass++
	pass := m.verifyPass
	ctx, cancel := context.WithCancel(context.Background())
	m.verifyCancel = cancel
	m.status = domain.VerificationStatus{Kind: domain.VerificationVerifying}
	m.verifyLock.Unlock()
	m.notify()

	ok := m.goroutines.Go(ctx, func(ctx context.Context) {
		defer cancel()
		status := m.verify(ctx, accountID)
		m.setStatus(pass, status)
	})
	if !ok {
		cancel()
	}
	return ok
}

// Verify runs a verification pass of the account and returns its outcome.
func (m *WatchManager) Verify(
	ctx context.Context, accountID string,
) domain.VerificationStatus {
	m.verifyLock.Lock()
	m.verifyPass++
	pass := m.verifyPass
	m.verifyLock.Unlock()

	status := m.verify(ctx, accountID)
	m.setStatus(pass, status)
	return status
}

func (m *WatchManager) verify(
	ctx context.Context, accountID string,
) domain.VerificationStatus {
	if !m.network.IsConnected() {
		return domain.VerificationStatus{
			Kind: domain.VerificationFailed, Reason: domain.ErrNotConnected.Error(),
		}
	}

	addresses, err := m.repo.AddressRepository().ListAddressesForAccount(
		ctx, accountID,
	)
	if err != nil {
		return domain.VerificationStatus{
			Kind: domain.VerificationFailed, Reason: err.Error(),
		}
	}

	watching := 0
	for _, addr := range addresses {
		if ctx.Err() != nil {
			return domain.VerificationStatus{
				Kind: domain.VerificationFailed, Reason: ctx.Err().Error(),
			}
		}
		err := m.network.WatchAddress(ctx, addr.Address, addr.Label)
		// A pass that ended during the call leaves the pending set alone.
		if ctx.Err() != nil {
			return domain.VerificationStatus{
				Kind: domain.VerificationFailed, Reason: ctx.Err().Error(),
			}
		}
		if err != nil {
			if werr := domain.NewWatchError(addr.Address, err); werr.Recoverable() {
				m.addPending(accountID, addr, err)
			}
			continue
		}
		m.removePending(accountID, addr.Address)
		watching++
	}

	return domain.VerificationStatus{
		Kind:     domain.VerificationVerified,
		Total:    len(addresses),
		Watching: watching,
	}
}

func (m *WatchManager) setStatus(pass uint64, status domain.VerificationStatus) {
	m.verifyLock.Lock()
	if pass != m.verifyPass {
		m.verifyLock.Unlock()
		log.Debugf("dropping outcome of superseded verification pass %d", pass)
		return
	}
	m.status = status
	m.verifyCancel = nil
	m.verifyLock.Unlock()

	if status.Kind == domain.VerificationFailed {
		log.Warnf("watch verification failed: %s", status.Reason)
	} else {
		log.Debugf(
			"watch verification done: %d/%d addresses watched",
			status.Watching, status.Total,
		)
	}
	m.notify()
}

func (m *WatchManager) Status() domain.VerificationStatus {
	m.verifyLock.Lock()
	defer m.verifyLock.Unlock()
	return m.status
}

// Stop terminates retries and verification and waits for them to return.
func (m *WatchManager) Stop() {
	m.verifyLock.Lock()
	if m.verifyCancel != nil {
		m.verifyCancel()
		m.verifyCancel = nil
	}
	m.verifyLock.Unlock()
	m.goroutines.Stop()
}

func (m *WatchManager) addPending(
	accountID string, addr domain.WatchedAddress, err error,
) {
	m.lock.Lock()
	defer m.lock.Unlock()

	entry, ok := m.pending[accountID]
	if !ok {
		entry = domain.NewPendingWatchEntry(accountID)
		m.pending[accountID] = entry
	}
	entry.Add(addr, err)
}

func (m *WatchManager) removePending(accountID, address string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	entry, ok := m.pending[accountID]
	if !ok {
		return
	}
	entry.Remove(address)
	if entry.Len() == 0 {
		delete(m.pending, accountID)
	}
}

func (m *WatchManager) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}
