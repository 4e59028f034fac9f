package application_test

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dashsync/walletsyncd/internal/core/application"
	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// **** Network ****

type mockNetwork struct {
	mock.Mock

	lock      sync.Mutex
	connected bool
	events    chan ports.Event
}

func newMockNetwork() *mockNetwork {
	return &mockNetwork{connected: true, events: make(chan ports.Event, 10)}
}

func (m *mockNetwork) Connect(ctx context.Context) error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return err
	}
	m.setConnected(true)
	return nil
}

func (m *mockNetwork) Disconnect() error {
	m.setConnected(false)
	return nil
}

func (m *mockNetwork) IsConnected() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.connected
}

func (m *mockNetwork) setConnected(connected bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.connected = connected
}

func (m *mockNetwork) GetBalance(
	ctx context.Context, address string,
) (domain.Balance, error) {
	args := m.Called(address)

	var res domain.Balance
	if a := args.Get(0); a != nil {
		res = a.(domain.Balance)
	}
	return res, args.Error(1)
}

func (m *mockNetwork) GetTransactions(
	ctx context.Context, address string,
) ([]ports.Tx, error) {
	args := m.Called(address)

	var res []ports.Tx
	if a := args.Get(0); a != nil {
		res = a.([]ports.Tx)
	}
	return res, args.Error(1)
}

func (m *mockNetwork) WatchAddress(ctx context.Context, address, label string) error {
	args := m.Called(address)
	return args.Error(0)
}

func (m *mockNetwork) SyncProgress(ctx context.Context) (ports.ProgressStream, error) {
	args := m.Called()

	var res ports.ProgressStream
	if a := args.Get(0); a != nil {
		res = a.(ports.ProgressStream)
	}
	return res, args.Error(1)
}

func (m *mockNetwork) Events() <-chan ports.Event {
	return m.events
}

// **** Progress stream ****

type streamItem struct {
	progress domain.SyncProgress
	err      error
}

// chanStream yields whatever is pushed into it and io.EOF once closed and
// drained.
type chanStream struct {
	ch   chan streamItem
	once sync.Once
}

func newChanStream() *chanStream {
	return &chanStream{ch: make(chan streamItem, 10)}
}

func (s *chanStream) Recv() (domain.SyncProgress, error) {
	item, ok := <-s.ch
	if !ok {
		return domain.SyncProgress{}, io.EOF
	}
	return item.progress, item.err
}

func (s *chanStream) push(stage domain.SyncStage, percentage float64) {
	s.ch <- streamItem{progress: domain.SyncProgress{Stage: stage, Percentage: percentage}}
}

func (s *chanStream) fail(err error) {
	s.ch <- streamItem{err: err}
}

func (s *chanStream) close() {
	s.once.Do(func() { close(s.ch) })
}

// **** Derivation ****

// fakeDerivation derives readable addresses like "<xpub>/<chain>/<index>".
// Deriving at failAt returns an error.
type fakeDerivation struct {
	failAt  *uint32
	invalid map[string]bool
}

func (d fakeDerivation) DeriveExtendedPublicKey(
	seed []byte, network domain.Network, accountIndex uint32,
) (string, error) {
	return fmt.Sprintf("xpub%d", accountIndex), nil
}

func (d fakeDerivation) DeriveAddress(
	xpub string, network domain.Network, chain domain.Chain, index uint32,
) (string, error) {
	if d.failAt != nil && *d.failAt == index {
		return "", fmt.Errorf("point at infinity")
	}
	return addressAt(xpub, chain, index), nil
}

func (d fakeDerivation) DerivationPath(
	network domain.Network, accountIndex uint32, chain domain.Chain, index uint32,
) string {
	return fmt.Sprintf("m/44'/1'/%d'/%d/%d", accountIndex, chain, index)
}

func (d fakeDerivation) ValidateAddress(address string, network domain.Network) bool {
	return !d.invalid[address]
}

func addressAt(xpub string, chain domain.Chain, index uint32) string {
	return fmt.Sprintf("%s/%d/%d", xpub, chain, index)
}

// **** Storage ****

// flakyRepoManager serves every repository of the wrapped manager except
// the tx one, whose lookups fail with err.
type flakyRepoManager struct {
	ports.RepoManager
	err error
}

func (r *flakyRepoManager) TransactionRepository() domain.TransactionRepository {
	return &flakyTxRepository{r.RepoManager.TransactionRepository(), r.err}
}

type flakyTxRepository struct {
	domain.TransactionRepository
	err error
}

func (r *flakyTxRepository) GetTransaction(
	ctx context.Context, txid string,
) (*domain.Transaction, error) {
	return nil, r.err
}

// **** PubSub ****

type testTopic struct {
	code  int
	label string
}

func (t testTopic) Code() int     { return t.code }
func (t testTopic) Label() string { return t.label }

type mockPubSub struct {
	mock.Mock
}

func (m *mockPubSub) Subscribe(topic, endpoint, secret string) (string, error) {
	args := m.Called(topic, endpoint, secret)
	return args.String(0), args.Error(1)
}

func (m *mockPubSub) Unsubscribe(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockPubSub) ListSubscriptionsForTopic(topic string) ([]ports.Subscription, error) {
	args := m.Called(topic)

	var res []ports.Subscription
	if a := args.Get(0); a != nil {
		res = a.([]ports.Subscription)
	}
	return res, args.Error(1)
}

func (m *mockPubSub) Publish(ctx context.Context, topic, message string) error {
	return m.Called(topic, message).Error(0)
}

func (m *mockPubSub) TopicsByCode() map[int]ports.Topic {
	return map[int]ports.Topic{
		application.SyncCompleted:     testTopic{application.SyncCompleted, "SYNC_COMPLETED"},
		application.BalanceChanged:    testTopic{application.BalanceChanged, "BALANCE_CHANGED"},
		application.ConnectionChanged: testTopic{application.ConnectionChanged, "CONNECTION_CHANGED"},
	}
}

func (m *mockPubSub) Close() error {
	return nil
}
