package stats

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "walletsync"

// Metrics exposes the state of the wallet sync as prometheus gauges.
type Metrics struct {
	registry *prometheus.Registry

	connected      prometheus.Gauge
	syncProgress   prometheus.Gauge
	syncRunning    prometheus.Gauge
	balance        *prometheus.GaugeVec
	mempoolTxs     prometheus.Gauge
	pendingWatches prometheus.Gauge
	watchedTotal   prometheus.Gauge
	watching       prometheus.Gauge
	syncsCompleted prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_connected",
			Help:      "1 if the network gateway is connected.",
		}),
		syncProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_progress_percentage",
			Help:      "Progress of the current sync session.",
		}),
		syncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_running",
			Help:      "1 while a sync session is running.",
		}),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_balance_duffs",
			Help:      "Balance of the active account by bucket.",
		}, []string{"bucket"}),
		mempoolTxs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mempool_transactions",
			Help:      "Unconfirmed transactions of the active account.",
		}),
		pendingWatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_watches",
			Help:      "Addresses whose registration with the network failed.",
		}),
		watchedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verified_addresses_total",
			Help:      "Addresses checked by the last verification pass.",
		}),
		watching: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verified_addresses_watching",
			Help:      "Addresses found watched by the last verification pass.",
		}),
		syncsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_completed_total",
			Help:      "Sync sessions completed since start.",
		}),
	}

	m.registry.MustRegister(
		m.connected, m.syncProgress, m.syncRunning, m.balance, m.mempoolTxs,
		m.pendingWatches, m.watchedTotal, m.watching, m.syncsCompleted,
	)
	return m
}

func (m *Metrics) SetConnected(connected bool) {
	m.connected.Set(boolToFloat(connected))
}

func (m *Metrics) SetSync(running bool, percentage float64) {
	m.syncRunning.Set(boolToFloat(running))
	m.syncProgress.Set(percentage)
}

func (m *Metrics) IncSyncsCompleted() {
	m.syncsCompleted.Inc()
}

// SetBalance sets the value of a balance bucket, ie. confirmed or mempool.
func (m *Metrics) SetBalance(bucket string, duffs uint64) {
	m.balance.WithLabelValues(bucket).Set(float64(duffs))
}

func (m *Metrics) SetMempoolTxs(count int) {
	m.mempoolTxs.Set(float64(count))
}

func (m *Metrics) SetPendingWatches(count int) {
	m.pendingWatches.Set(float64(count))
}

func (m *Metrics) SetVerification(total, watching int) {
	m.watchedTotal.Set(float64(total))
	m.watching.Set(float64(watching))
}

// Serve exposes the metrics over HTTP at /metrics until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("failed to shutdown metrics server")
		}
	}()

	log.Infof("serving metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Gatherer returns the registry holding the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
