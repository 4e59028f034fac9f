package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dashsync/walletsyncd/internal/config"
	"github.com/dashsync/walletsyncd/internal/core/application"
	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/pkg/stats"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var start = cli.Command{
	Name:  "start",
	Usage: "run the daemon, keeping the wallet account in sync until interrupted",
	Flags: []cli.Flag{walletFlag, accountFlag},
	Action: func(c *cli.Context) error {
		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()

		return withDaemon(c, true, func(_ context.Context, d *daemon) error {
			metrics := stats.NewMetrics()
			states, unsubscribe := d.svc.Subscribe()
			defer unsubscribe()
			go feedMetrics(metrics, d.svc.State(), states)

			if addr := config.GetString(config.MetricsAddrKey); addr != "" {
				go func() {
					if err := metrics.Serve(ctx, addr); err != nil {
						log.WithError(err).Warn("metrics server stopped")
					}
				}()
			}

			ps, err := newPubSub()
			if err != nil {
				return err
			}
			defer ps.Close()
			publisher := application.NewEventPublisher(ps, d.svc.State())
			events, unsubscribeEvents := d.svc.Subscribe()
			defer unsubscribeEvents()
			go publisher.Run(ctx, events)

			if interval := config.GetDuration(config.StatsIntervalKey); interval > 0 {
				dumpPath := filepath.Join(config.GetDatadir(), "stats.prom")
				stats.EnableMemoryStatistics(ctx, interval, dumpPath)
			}

			if _, err := d.svc.Sync(ctx); err != nil {
				log.WithError(err).Warn("initial sync failed to start")
			}

			log.Info("daemon started")
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
			<-sigChan

			log.Info("shutting down daemon")
			cancel()
			return nil
		})
	},
}

var discover = cli.Command{
	Name:  "discover",
	Usage: "scan the account chains for used addresses",
	Flags: []cli.Flag{walletFlag, accountFlag},
	Action: func(c *cli.Context) error {
		return withDaemon(c, true, func(ctx context.Context, d *daemon) error {
			res, err := d.svc.DiscoverAddresses(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"external": chainDiscoveryInfo(res.External),
				"internal": chainDiscoveryInfo(res.Internal),
			})
		})
	},
}

var syncwallet = cli.Command{
	Name:  "sync",
	Usage: "run a full sync of the account and wait for it to end",
	Flags: []cli.Flag{walletFlag, accountFlag},
	Action: func(c *cli.Context) error {
		return withDaemon(c, true, func(ctx context.Context, d *daemon) error {
			states, unsubscribe := d.svc.Subscribe()
			defer unsubscribe()

			sessionID, err := d.svc.Sync(ctx)
			if err != nil {
				return err
			}

			session, err := waitSession(ctx, d.svc, sessionID, states)
			if err != nil {
				return err
			}
			if session.State != domain.SyncCompleted {
				if session.LastError != "" {
					return fmt.Errorf("sync %s: %s", session.State, session.LastError)
				}
				return fmt.Errorf("sync %s", session.State)
			}

			balance, err := d.svc.Balance(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"session": sessionID,
				"status":  session.Status(),
				"balance": balanceInfo(balance),
			})
		})
	},
}

// waitSession blocks until the session is no longer running.
func waitSession(
	ctx context.Context, svc *application.Service,
	sessionID string, states <-chan application.State,
) (domain.SyncSession, error) {
	if s := svc.SyncSession(); s.ID == sessionID && s.State != domain.SyncRunning {
		return s, nil
	}

	for {
		select {
		case <-ctx.Done():
			return domain.SyncSession{}, ctx.Err()
		case st, ok := <-states:
			if !ok {
				return domain.SyncSession{}, fmt.Errorf("service stopped")
			}
			if st.Sync.ID != sessionID {
				continue
			}
			log.Debugf(
				"sync %s: %.1f%%", st.Sync.Progress.Stage, st.Sync.Progress.Percentage,
			)
			if st.Sync.State != domain.SyncRunning {
				return st.Sync, nil
			}
		}
	}
}

// feedMetrics keeps the metrics in line with the service state until the
// channel is closed.
func feedMetrics(
	m *stats.Metrics, initial application.State, states <-chan application.State,
) {
	lastCompleted := ""
	apply := func(st application.State) {
		m.SetConnected(st.Connected)
		m.SetSync(st.Sync.State == domain.SyncRunning, st.Sync.Progress.Percentage)
		if st.Sync.State == domain.SyncCompleted && st.Sync.ID != lastCompleted {
			lastCompleted = st.Sync.ID
			m.IncSyncsCompleted()
		}
		m.SetBalance("confirmed", st.Balance.Confirmed)
		m.SetBalance("pending", st.Balance.Pending)
		m.SetBalance("instant_locked", st.Balance.InstantLocked)
		m.SetBalance("mempool", st.Balance.Mempool)
		m.SetBalance("total", st.Balance.Total)
		m.SetMempoolTxs(st.MempoolTxCount)
		m.SetPendingWatches(st.PendingWatches)
		m.SetVerification(st.Verification.Total, st.Verification.Watching)
	}

	apply(initial)
	for st := range states {
		apply(st)
	}
}

func chainDiscoveryInfo(c application.ChainDiscovery) map[string]interface{} {
	list := make([]map[string]interface{}, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		list = append(list, addressInfo(a))
	}
	return map[string]interface{}{
		"last_used_index": c.LastUsedIndex,
		"next_index":      c.NextIndex,
		"addresses":       list,
	}
}
