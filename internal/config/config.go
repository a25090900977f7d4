package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of
	// the daemon.
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the
	// values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// HTTPPortKey is the port where the HTTP interface will listen on.
	HTTPPortKey = "HTTP_PORT"
	// DBTypeKey is used to switch database type between those supported.
	DBTypeKey = "DB_TYPE"
	// WorkerConcurrencyKey is the max number of orders processed
	// simultaneously by the scheduler.
	WorkerConcurrencyKey = "WORKER_CONCURRENCY"
	// JobMaxAttemptsKey is the attempt budget of a job before a transient
	// failure becomes terminal.
	JobMaxAttemptsKey = "JOB_MAX_ATTEMPTS"
	// RetryBackoffKey is the base delay of the exponential retry backoff.
	RetryBackoffKey = "RETRY_BACKOFF"
	// DefaultSlippageBpsKey is the slippage tolerance applied to orders that
	// don't provide one.
	DefaultSlippageBpsKey = "DEFAULT_SLIPPAGE_BPS"
	// MaxOrdersPerMinKey is the admission limit of new orders per minute.
	MaxOrdersPerMinKey = "MAX_ORDERS_PER_MIN"
	// QueueMaxPerMinKey caps the number of jobs dispatched to workers per
	// minute. 0 disables the cap.
	QueueMaxPerMinKey = "QUEUE_MAX_PER_MIN"
	// IdempotencyTTLKey is the lifetime of an idempotency key reservation.
	IdempotencyTTLKey = "IDEMPOTENCY_TTL"
	// VenuesKey is the list of simulated venues in name:fee:priceLo:priceHi
	// form, in precedence order for tie-breaking.
	VenuesKey = "VENUES"
	// BuildDelayKey is the fixed latency of the simulated build step.
	BuildDelayKey = "BUILD_DELAY"
	// QuoteMinDelayKey/QuoteMaxDelayKey bound the simulated quote latency.
	QuoteMinDelayKey = "QUOTE_MIN_DELAY"
	QuoteMaxDelayKey = "QUOTE_MAX_DELAY"
	// ExecutionMinDelayKey/ExecutionMaxDelayKey bound the simulated
	// finalization latency.
	ExecutionMinDelayKey = "EXECUTION_MIN_DELAY"
	ExecutionMaxDelayKey = "EXECUTION_MAX_DELAY"

	DBBadger   = "badger"
	DBInMemory = "inmemory"

	DbLocation = "db"

	minSlippageBps = 1
	maxSlippageBps = 10000
)

var vip *viper.Viper

var defaultDatadir = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swapd"
	}
	return filepath.Join(home, ".swapd")
}()

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("SWAPD")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(HTTPPortKey, 8080)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(WorkerConcurrencyKey, 10)
	vip.SetDefault(JobMaxAttemptsKey, 3)
	vip.SetDefault(RetryBackoffKey, 500*time.Millisecond)
	vip.SetDefault(DefaultSlippageBpsKey, 50)
	vip.SetDefault(MaxOrdersPerMinKey, 120)
	vip.SetDefault(QueueMaxPerMinKey, 100)
	vip.SetDefault(IdempotencyTTLKey, time.Hour)
	vip.SetDefault(VenuesKey, []string{
		"Raydium:0.003:0.98:1.02",
		"Meteora:0.002:0.97:1.02",
	})
	vip.SetDefault(BuildDelayKey, 150*time.Millisecond)
	vip.SetDefault(QuoteMinDelayKey, 200*time.Millisecond)
	vip.SetDefault(QuoteMaxDelayKey, 350*time.Millisecond)
	vip.SetDefault(ExecutionMinDelayKey, 2*time.Second)
	vip.SetDefault(ExecutionMaxDelayKey, 3*time.Second)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	switch dbType := GetString(DBTypeKey); dbType {
	case DBBadger, DBInMemory:
	default:
		return fmt.Errorf("unsupported database type %s", dbType)
	}

	if GetInt(WorkerConcurrencyKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", WorkerConcurrencyKey)
	}
	if GetInt(JobMaxAttemptsKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", JobMaxAttemptsKey)
	}
	if GetDuration(RetryBackoffKey) <= 0 {
		return fmt.Errorf("%s must be a positive duration", RetryBackoffKey)
	}

	slippage := GetInt(DefaultSlippageBpsKey)
	if slippage < minSlippageBps || slippage > maxSlippageBps {
		return fmt.Errorf(
			"%s must be in range [%d, %d]",
			DefaultSlippageBpsKey, minSlippageBps, maxSlippageBps,
		)
	}

	venues := GetStringSlice(VenuesKey)
	if len(venues) < 2 {
		return fmt.Errorf("at least 2 venues must be configured")
	}
	for _, venue := range venues {
		if parts := strings.Split(venue, ":"); len(parts) != 4 {
			return fmt.Errorf(
				"invalid venue %s, expected name:fee:priceLo:priceHi", venue,
			)
		}
	}

	if GetDuration(QuoteMaxDelayKey) < GetDuration(QuoteMinDelayKey) {
		return fmt.Errorf("quote latency bounds are inverted")
	}
	if GetDuration(ExecutionMaxDelayKey) < GetDuration(ExecutionMinDelayKey) {
		return fmt.Errorf("execution latency bounds are inverted")
	}

	return nil
}

func initDatadir() error {
	if GetString(DBTypeKey) != DBBadger {
		return nil
	}
	return makeDirectoryIfNotExists(filepath.Join(GetDatadir(), DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
