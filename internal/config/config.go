package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dashsync/walletsyncd/internal/core/domain"

	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// LogFileKey is the path of the rotated log file. Defaults to a file in
	// the logs folder of the datadir
	LogFileKey = "LOG_FILE"
	// NetworkKey is the Dash network to use: mainnet, testnet, devnet or regtest
	NetworkKey = "NETWORK"
	// ExplorerUrlKey is the endpoint where the esplora compatible REST API is listening
	ExplorerUrlKey = "EXPLORER_URL"
	// ExplorerRequestTimeoutKey is the time to wait for HTTP responses before timeouts
	ExplorerRequestTimeoutKey = "EXPLORER_REQUEST_TIMEOUT"
	// ExplorerRequestsPerSecondKey represents number of requests per second
	// made to the explorer
	ExplorerRequestsPerSecondKey = "EXPLORER_REQUESTS_PER_SECOND"
	// ExplorerBurstKey represents number of bursts tokens permitted from
	// crawler to explorer
	ExplorerBurstKey = "EXPLORER_BURST"
	// CrawlIntervalKey is the interval between two polls of a watched address
	CrawlIntervalKey = "CRAWL_INTERVAL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// GapLimitKey is the number of consecutive unused addresses that ends
	// address discovery
	GapLimitKey = "GAP_LIMIT"
	// WatchRetryDelayKey is the delay before retrying failed address
	// registrations
	WatchRetryDelayKey = "WATCH_RETRY_DELAY"
	// WatchVerifyIntervalKey is the interval between two checks that every
	// address is still watched
	WatchVerifyIntervalKey = "WATCH_VERIFY_INTERVAL"
	// AutoSyncIntervalKey is the interval between two automatic syncs. Zero
	// disables auto sync
	AutoSyncIntervalKey = "AUTO_SYNC_INTERVAL"
	// TxLookupMaxAttemptsKey is the max number of attempts when looking up a
	// tx in storage
	TxLookupMaxAttemptsKey = "TX_LOOKUP_MAX_ATTEMPTS"
	// TxLookupBaseDelayKey is the delay before the first retry of a tx lookup
	TxLookupBaseDelayKey = "TX_LOOKUP_BASE_DELAY"
	// MetricsAddrKey is the address where prometheus metrics are served.
	// Empty disables the endpoint
	MetricsAddrKey = "METRICS_ADDR"
	// StatsIntervalKey defines interval for printing memory statistics. Zero
	// disables them
	StatsIntervalKey = "STATS_INTERVAL"
	// WebhookRequestTimeoutKey is the time to wait for a webhook endpoint to
	// respond
	WebhookRequestTimeoutKey = "WEBHOOK_REQUEST_TIMEOUT"

	DbLocation       = "db"
	LogsLocation     = "logs"
	WebhooksLocation = "webhooks.db"

	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("walletsyncd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("WALLETSYNC")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NetworkKey, domain.NetworkMainnet.String())
	vip.SetDefault(ExplorerUrlKey, "http://localhost:3002")
	vip.SetDefault(ExplorerRequestTimeoutKey, 15*time.Second)
	vip.SetDefault(ExplorerRequestsPerSecondKey, 10)
	vip.SetDefault(ExplorerBurstKey, 1)
	vip.SetDefault(CrawlIntervalKey, 10*time.Second)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(GapLimitKey, domain.DefaultGapLimit)
	vip.SetDefault(WatchRetryDelayKey, 5*time.Second)
	vip.SetDefault(WatchVerifyIntervalKey, 5*time.Minute)
	vip.SetDefault(AutoSyncIntervalKey, 10*time.Minute)
	vip.SetDefault(TxLookupMaxAttemptsKey, 3)
	vip.SetDefault(TxLookupBaseDelayKey, 100*time.Millisecond)
	vip.SetDefault(StatsIntervalKey, 0)
	vip.SetDefault(WebhookRequestTimeoutKey, 15*time.Second)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	if !vip.IsSet(LogFileKey) {
		vip.Set(LogFileKey, filepath.Join(GetDatadir(), LogsLocation, "walletsyncd.log"))
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

func GetWebhooksDBPath() string {
	return filepath.Join(GetDatadir(), WebhooksLocation)
}

func GetNetwork() domain.Network {
	network, _ := domain.ParseNetwork(GetString(NetworkKey))
	return network
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if _, err := domain.ParseNetwork(GetString(NetworkKey)); err != nil {
		return fmt.Errorf(
			"network must be one of '%s', '%s', '%s' or '%s'",
			domain.NetworkMainnet, domain.NetworkTestnet, domain.NetworkDevnet, domain.NetworkRegtest,
		)
	}

	explorerUrl := GetString(ExplorerUrlKey)
	if _, err := url.ParseRequestURI(explorerUrl); err != nil {
		return fmt.Errorf("explorer endpoint is not a valid url: %s", err)
	}

	dbType := GetString(DBTypeKey)
	if dbType != DBBadger && dbType != DBInMemory {
		return fmt.Errorf("db type must be either '%s' or '%s'", DBBadger, DBInMemory)
	}

	if GetInt(GapLimitKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", GapLimitKey)
	}
	if GetInt(TxLookupMaxAttemptsKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", TxLookupMaxAttemptsKey)
	}
	if GetFloat(ExplorerRequestsPerSecondKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", ExplorerRequestsPerSecondKey)
	}

	for _, key := range []string{
		WatchRetryDelayKey, WatchVerifyIntervalKey, CrawlIntervalKey,
		ExplorerRequestTimeoutKey, TxLookupBaseDelayKey, WebhookRequestTimeoutKey,
	} {
		if GetDuration(key) <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}
	if GetDuration(AutoSyncIntervalKey) < 0 {
		return fmt.Errorf("%s must not be negative", AutoSyncIntervalKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if GetString(DBTypeKey) == DBBadger {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
			return err
		}
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, LogsLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
