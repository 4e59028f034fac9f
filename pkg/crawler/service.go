package crawler

import (
	"sync"
	"time"

	"github.com/dashsync/walletsyncd/pkg/explorer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	eventQueueMaxSize = 100
	errorQueueMaxSize = 10

	defaultInterval          = 10 * time.Second
	defaultRequestsPerSecond = 10
	defaultBurst             = 1
)

type blockchainCrawler struct {
	interval     time.Duration
	explorerSvc  explorer.Service
	errChan      chan error
	eventChan    chan Event
	quitChan     chan struct{}
	observables  map[string]*observableHandler
	errorHandler func(err error)
	rateLimiter  *rate.Limiter
	mutex        *sync.RWMutex
	stopOnce     sync.Once
}

// Opts defines the parameters needed for creating a crawler service with NewService method
type Opts struct {
	ExplorerSvc       explorer.Service
	Interval          time.Duration
	RequestsPerSecond float64
	Burst             int
	ErrorHandler      func(err error)
}

// NewService returns a crawler that is ready for watch for blockchain
// activites. Use Start and Stop methods to manage it.
func NewService(opts Opts) Service {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	errorHandler := opts.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(err error) {
			log.WithError(err).Warn("crawler")
		}
	}

	return &blockchainCrawler{
		interval:     interval,
		explorerSvc:  opts.ExplorerSvc,
		errChan:      make(chan error, errorQueueMaxSize),
		eventChan:    make(chan Event, eventQueueMaxSize),
		quitChan:     make(chan struct{}),
		observables:  map[string]*observableHandler{},
		errorHandler: errorHandler,
		rateLimiter:  rate.NewLimiter(rate.Limit(rps), burst),
		mutex:        &sync.RWMutex{},
	}
}

// Start forwards the errors of the observations to the error handler until
// Stop is called. It blocks.
func (bc *blockchainCrawler) Start() {
	for {
		select {
		case err := <-bc.errChan:
			bc.errorHandler(err)
		case <-bc.quitChan:
			return
		}
	}
}

// Stop stops every observation and emits a QuitEvent.
func (bc *blockchainCrawler) Stop() {
	bc.stopOnce.Do(func() {
		bc.mutex.Lock()
		handlers := make([]*observableHandler, 0, len(bc.observables))
		for k, obsHandler := range bc.observables {
			handlers = append(handlers, obsHandler)
			delete(bc.observables, k)
		}
		bc.mutex.Unlock()

		for _, h := range handlers {
			h.stop()
		}
		close(bc.quitChan)

		select {
		case bc.eventChan <- QuitEvent{}:
		default:
		}
	})
}

// GetEventChannel returns Event channel which can be used to "listen" to
// blockchain events
func (bc *blockchainCrawler) GetEventChannel() <-chan Event {
	return bc.eventChan
}

// AddObservable adds new Observable to the list of Observables to be "watched
// over" only if the same Observable is not already in the list
func (bc *blockchainCrawler) AddObservable(observable Observable) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	select {
	case <-bc.quitChan:
		return
	default:
	}

	if _, ok := bc.observables[observable.key()]; !ok {
		obsHandler := newObservableHandler(
			observable,
			bc.explorerSvc,
			bc.interval,
			bc.eventChan,
			bc.errChan,
			bc.rateLimiter,
		)

		bc.observables[observable.key()] = obsHandler
		obsHandler.start()
	}
}

// RemoveObservable stops "watching" given Observable
func (bc *blockchainCrawler) RemoveObservable(observable Observable) {
	bc.mutex.Lock()
	obsHandler, ok := bc.observables[observable.key()]
	if ok {
		delete(bc.observables, observable.key())
	}
	bc.mutex.Unlock()

	if ok {
		obsHandler.stop()
	}
}

// IsObservingAddresses returns true if the crawler is observing all the
// addresses given as parameter.
func (bc *blockchainCrawler) IsObservingAddresses(addresses []string) bool {
	if len(addresses) == 0 {
		return false
	}

	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	for _, addr := range addresses {
		if _, ok := bc.observables[addr]; !ok {
			return false
		}
	}
	return true
}
