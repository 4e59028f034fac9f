package crawler

import (
	"context"

	"github.com/dashsync/walletsyncd/pkg/explorer"
	"golang.org/x/time/rate"
)

// Event are emitted through a channel during observation.
type Event interface {
	Type() EventType
}

// Observable represent object that can be observe on the blockchain.
type Observable interface {
	observe(
		ctx context.Context,
		explorerSvc explorer.Service,
		rateLimiter *rate.Limiter,
	) (Event, error)
	key() string
}

// Service is the interface for Crawler
type Service interface {
	Start()
	Stop()
	AddObservable(observable Observable)
	RemoveObservable(observable Observable)
	GetEventChannel() <-chan Event
	IsObservingAddresses(addresses []string) bool
}
