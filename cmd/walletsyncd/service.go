package main

import (
	"context"
	"fmt"

	"github.com/dashsync/walletsyncd/internal/config"
	"github.com/dashsync/walletsyncd/internal/core/application"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/internal/infrastructure/hdwallet"
	"github.com/dashsync/walletsyncd/internal/infrastructure/network"
	dbbadger "github.com/dashsync/walletsyncd/internal/infrastructure/storage/db/badger"
	"github.com/dashsync/walletsyncd/internal/infrastructure/storage/db/inmemory"
	"github.com/dashsync/walletsyncd/pkg/explorer/esplora"
	"github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// daemon bundles the sync service with the storage it must close on exit.
type daemon struct {
	svc  *application.Service
	repo ports.RepoManager
}

func newDaemon() (*daemon, error) {
	repo, err := newRepoManager()
	if err != nil {
		return nil, err
	}

	explorerSvc, err := esplora.NewService(esplora.Opts{
		APIURL:            config.GetString(config.ExplorerUrlKey),
		RequestsPerSecond: config.GetInt(config.ExplorerRequestsPerSecondKey),
		RequestTimeout:    config.GetDuration(config.ExplorerRequestTimeoutKey),
	})
	if err != nil {
		repo.Close()
		return nil, err
	}

	net := config.GetNetwork()
	gateway, err := network.NewGateway(network.Opts{
		ExplorerSvc:       explorerSvc,
		Network:           net,
		CrawlInterval:     config.GetDuration(config.CrawlIntervalKey),
		RequestsPerSecond: config.GetFloat(config.ExplorerRequestsPerSecondKey),
		Burst:             config.GetInt(config.ExplorerBurstKey),
	})
	if err != nil {
		repo.Close()
		return nil, err
	}

	svc, err := application.NewService(application.Config{
		Network:             net,
		RepoManager:         repo,
		NetworkGateway:      gateway,
		DerivationGateway:   hdwallet.NewDerivationGateway(),
		GapLimit:            uint32(config.GetInt(config.GapLimitKey)),
		WatchRetryDelay:     config.GetDuration(config.WatchRetryDelayKey),
		WatchVerifyInterval: config.GetDuration(config.WatchVerifyIntervalKey),
		AutoSyncInterval:    config.GetDuration(config.AutoSyncIntervalKey),
		TxLookupMaxAttempts: config.GetInt(config.TxLookupMaxAttemptsKey),
		TxLookupBaseDelay:   config.GetDuration(config.TxLookupBaseDelayKey),
	})
	if err != nil {
		repo.Close()
		return nil, err
	}

	return &daemon{svc, repo}, nil
}

func newRepoManager() (ports.RepoManager, error) {
	switch dbType := config.GetString(config.DBTypeKey); dbType {
	case config.DBInMemory:
		log.Warn("using in-memory storage, state is lost on exit")
		return inmemory.NewRepoManager(), nil
	case config.DBBadger:
		var logger badger.Logger
		if log.GetLevel() >= log.DebugLevel {
			logger = log.StandardLogger()
		}
		return dbbadger.NewRepoManager(config.GetDbDir(), logger)
	default:
		return nil, fmt.Errorf("unknown db type %s", dbType)
	}
}

func (d *daemon) close() {
	d.svc.Stop()
	d.repo.Close()
}

// selectAccount makes active the account chosen with the wallet and account
// flags, falling back to the first wallet stored.
func (d *daemon) selectAccount(ctx context.Context, c *cli.Context) error {
	walletID := c.String(walletFlag.Name)
	if walletID == "" {
		wallets, err := d.svc.ListWallets(ctx)
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			return fmt.Errorf("no wallet found: try 'create' or 'import'")
		}
		walletID = wallets[0].ID
	}
	return d.svc.SelectAccount(ctx, walletID, uint32(c.Uint(accountFlag.Name)))
}

// withDaemon runs fn with a daemon whose account is selected. If connect is
// set the service is started first.
func withDaemon(
	c *cli.Context, connect bool,
	fn func(ctx context.Context, d *daemon) error,
) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.close()

	ctx := c.Context
	if err := d.selectAccount(ctx, c); err != nil {
		return err
	}
	if connect {
		if err := d.svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	return fn(ctx, d)
}
