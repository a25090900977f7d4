package httpinterface

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/solstream/swapd/internal/core/ports"
)

// Service exposes the order submission endpoint, the per-order WebSocket
// event stream and the operational endpoints over HTTP.
type Service struct {
	repoManager    ports.RepoManager
	pubsub         ports.EventDistributor
	queue          ports.JobQueue
	admission      ports.AdmissionGate
	idempotency    ports.IdempotencyStore
	idempotencyTTL time.Duration

	defaultSlippageBps int64
	server             *http.Server
}

type ServiceOpts struct {
	Port               int
	RepoManager        ports.RepoManager
	PubSub             ports.EventDistributor
	Queue              ports.JobQueue
	Admission          ports.AdmissionGate
	Idempotency        ports.IdempotencyStore
	IdempotencyTTL     time.Duration
	DefaultSlippageBps int64
}

func NewService(opts ServiceOpts) (*Service, error) {
	if opts.RepoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if opts.PubSub == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("missing job queue")
	}
	if opts.Admission == nil {
		return nil, fmt.Errorf("missing admission gate")
	}
	if opts.Idempotency == nil {
		return nil, fmt.Errorf("missing idempotency store")
	}

	svc := &Service{
		repoManager:        opts.RepoManager,
		pubsub:             opts.PubSub,
		queue:              opts.Queue,
		admission:          opts.Admission,
		idempotency:        opts.Idempotency,
		idempotencyTTL:     opts.IdempotencyTTL,
		defaultSlippageBps: opts.DefaultSlippageBps,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/orders/execute", svc.orderStreamHandler).
		Methods(http.MethodGet).
		Headers("Upgrade", "websocket")
	router.HandleFunc("/api/orders/execute", svc.executeOrderHandler).
		Methods(http.MethodPost)
	router.HandleFunc("/api/orders/{id}", svc.getOrderHandler).
		Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())

	svc.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	return svc, nil
}

// Start listens on the configured port until Stop is called.
func (s *Service) Start() error {
	log.Debugf("http interface is listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint
	s.server.Shutdown(ctx)
}
