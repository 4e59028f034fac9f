package application

import (
	"sync"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

// State is a snapshot of everything the service exposes to observers.
type State struct {
	WalletID       string
	AccountID      string
	Connected      bool
	Sync           domain.SyncSession
	SyncStatus     domain.SyncStatus
	LastSyncError  string
	Balance        domain.Balance
	MempoolTxCount int
	PendingWatches int
	Verification   domain.VerificationStatus
}

// Notifier holds the current State and broadcasts every change to its
// subscribers. Slow subscribers only get the latest snapshot.
type Notifier struct {
	lock        sync.RWMutex
	state       State
	subscribers map[int]chan State
	nextID      int
}

func NewNotifier() *Notifier {
	return &Notifier{
		state:       State{SyncStatus: domain.SyncStatusIdle},
		subscribers: make(map[int]chan State),
	}
}

func (n *Notifier) Snapshot() State {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.state
}

// Update applies fn to the state and notifies subscribers with the result.
func (n *Notifier) Update(fn func(s *State)) {
	n.lock.Lock()
	defer n.lock.Unlock()

	fn(&n.state)
	for _, ch := range n.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- n.state
	}
}

// Subscribe returns a channel receiving state changes and the function to
// unsubscribe, which closes the channel.
func (n *Notifier) Subscribe() (<-chan State, func()) {
	n.lock.Lock()
	defer n.lock.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan State, 1)
	n.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.lock.Lock()
			defer n.lock.Unlock()
			delete(n.subscribers, id)
			close(ch)
		})
	}
}
