package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/solstream/swapd/internal/config"
	"github.com/solstream/swapd/internal/core/application/executor"
	"github.com/solstream/swapd/internal/core/application/pubsub"
	"github.com/solstream/swapd/internal/core/application/router"
	"github.com/solstream/swapd/internal/core/application/scheduler"
	"github.com/solstream/swapd/internal/core/ports"
	inmemoryqueue "github.com/solstream/swapd/internal/infrastructure/queue/inmemory"
	"github.com/solstream/swapd/internal/infrastructure/ratelimit"
	dbbadger "github.com/solstream/swapd/internal/infrastructure/storage/db/badger"
	"github.com/solstream/swapd/internal/infrastructure/storage/db/inmemory"
	"github.com/solstream/swapd/internal/infrastructure/venue"
	httpinterface "github.com/solstream/swapd/internal/interfaces/http"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	var repoManager ports.RepoManager
	var idemStore ports.IdempotencyStore
	switch config.GetString(config.DBTypeKey) {
	case config.DBInMemory:
		db := inmemory.NewDbManager()
		repoManager, idemStore = db, inmemory.NewIdempotencyStoreImpl()
	default:
		db, err := dbbadger.NewDbManager(
			filepath.Join(config.GetDatadir(), config.DbLocation), nil,
		)
		if err != nil {
			log.WithError(err).Fatal("failed to open datadir")
		}
		repoManager, idemStore = db, dbbadger.NewIdempotencyStoreImpl(db)
	}
	defer repoManager.Close()

	pubsubSvc, err := pubsub.NewService(repoManager)
	if err != nil {
		log.WithError(err).Fatal("failed to create pubsub service")
	}

	sources, err := venue.ParseSources(
		config.GetStringSlice(config.VenuesKey),
		config.GetDuration(config.QuoteMinDelayKey),
		config.GetDuration(config.QuoteMaxDelayKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create quote sources")
	}
	routerSvc, err := router.NewService(sources)
	if err != nil {
		log.WithError(err).Fatal("failed to create router service")
	}

	simulator, err := venue.NewExecutionSimulator(
		config.GetDuration(config.ExecutionMinDelayKey),
		config.GetDuration(config.ExecutionMaxDelayKey),
		nil,
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create execution simulator")
	}

	executorSvc, err := executor.NewService(
		repoManager, pubsubSvc, routerSvc, simulator,
		config.GetDuration(config.BuildDelayKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create executor service")
	}

	jobQueue := inmemoryqueue.NewJobQueue()
	defer jobQueue.Close()

	schedulerSvc, err := scheduler.NewService(
		jobQueue, executorSvc, repoManager, pubsubSvc,
		scheduler.NewClassifier(config.GetInt(config.JobMaxAttemptsKey)),
		config.GetInt(config.WorkerConcurrencyKey),
		config.GetDuration(config.RetryBackoffKey),
		config.GetInt(config.QueueMaxPerMinKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create scheduler service")
	}

	admissionGate, err := ratelimit.NewWindowGate(
		config.GetInt(config.MaxOrdersPerMinKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create admission gate")
	}

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Port:               config.GetInt(config.HTTPPortKey),
		RepoManager:        repoManager,
		PubSub:             pubsubSvc,
		Queue:              jobQueue,
		Admission:          admissionGate,
		Idempotency:        idemStore,
		IdempotencyTTL:     config.GetDuration(config.IdempotencyTTLKey),
		DefaultSlippageBps: int64(config.GetInt(config.DefaultSlippageBpsKey)),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create http service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go schedulerSvc.Start(ctx)
	go func() {
		if err := httpSvc.Start(); err != nil {
			log.WithError(err).Fatal("error listening on http interface")
		}
	}()

	log.Debug("starting daemon")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("exiting")
	httpSvc.Stop()
	cancel()
}
