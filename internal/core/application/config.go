package application

import (
	"fmt"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/lightningnetwork/lnd/clock"
)

const (
	defaultWatchRetryDelay     = 5 * time.Second
	defaultWatchVerifyInterval = 5 * time.Minute
	defaultTxLookupAttempts    = 3
	defaultTxLookupBaseDelay   = 100 * time.Millisecond
)

// Config holds the dependencies and the tunables of the sync service.
type Config struct {
	Network domain.Network

	RepoManager       ports.RepoManager
	NetworkGateway    ports.NetworkGateway
	DerivationGateway ports.DerivationGateway
	// Clock defaults to the system clock.
	Clock clock.Clock

	GapLimit            uint32
	WatchRetryDelay     time.Duration
	WatchVerifyInterval time.Duration
	// AutoSyncInterval disables periodic syncs if zero.
	AutoSyncInterval    time.Duration
	TxLookupMaxAttempts int
	TxLookupBaseDelay   time.Duration
}

func (c *Config) validate() error {
	if !c.Network.IsValid() {
		return domain.ErrInvalidNetwork
	}
	if c.RepoManager == nil {
		return fmt.Errorf("missing repo manager")
	}
	if c.NetworkGateway == nil {
		return fmt.Errorf("missing network gateway")
	}
	if c.DerivationGateway == nil {
		return fmt.Errorf("missing derivation gateway")
	}
	if c.AutoSyncInterval < 0 {
		return fmt.Errorf("auto sync interval must not be negative")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
	if c.GapLimit == 0 {
		c.GapLimit = domain.DefaultGapLimit
	}
	if c.WatchRetryDelay <= 0 {
		c.WatchRetryDelay = defaultWatchRetryDelay
	}
	if c.WatchVerifyInterval <= 0 {
		c.WatchVerifyInterval = defaultWatchVerifyInterval
	}
	if c.TxLookupMaxAttempts <= 0 {
		c.TxLookupMaxAttempts = defaultTxLookupAttempts
	}
	if c.TxLookupBaseDelay <= 0 {
		c.TxLookupBaseDelay = defaultTxLookupBaseDelay
	}
}
