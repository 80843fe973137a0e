package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/verdantis/fulfillment/internal/domain"
	"github.com/verdantis/fulfillment/internal/fulfillment"
	"github.com/verdantis/fulfillment/internal/health"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server — HTTP-фасад контура исполнения заказов.
type Server struct {
	engine      *fulfillment.Engine
	idempotency domain.IdempotencyRepository
	health      *health.Handler
	logger      *log.Entry
	router      *mux.Router
	httpServer  *http.Server
}

// NewServer собирает роутер и HTTP-сервер. idempotency и healthHandler
// опциональны: без них соответствующие контуры просто не включаются.
func NewServer(
	addr string,
	engine *fulfillment.Engine,
	idempotency domain.IdempotencyRepository,
	healthHandler *health.Handler,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.WithField("component", "http_server")
	}

	s := &Server{
		engine:      engine,
		idempotency: idempotency,
		health:      healthHandler,
		logger:      logger,
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	if s.health != nil {
		r.Handle("/healthz", s.health).Methods(http.MethodGet)
		r.HandleFunc("/livez", health.LivenessHandler).Methods(http.MethodGet)
		r.HandleFunc("/readyz", s.health.ReadinessHandler).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(s.actorMiddleware)

	// Создающие запросы защищены idempotency-key.
	create := api.NewRoute().Subrouter()
	create.Use(s.idempotencyMiddleware)
	create.HandleFunc("/patient/orders", s.handleCreatePatientOrder).Methods(http.MethodPost)
	create.HandleFunc("/organization/orders", s.handleCreateMarketplaceOrder).Methods(http.MethodPost)

	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/tracking", s.handleAttachTracking).Methods(http.MethodPut)
	api.HandleFunc("/organization/orders", s.handleListOrganizationOrders).Methods(http.MethodGet)
	api.HandleFunc("/organization/orders/expedition", s.handleListExpeditionOrders).Methods(http.MethodGet)
	api.HandleFunc("/organization/orders/{id}/status", s.handleTransitionStatus).Methods(http.MethodPatch)

	return r
}

// Router отдаёт собранный роутер (используется в тестах).
func (s *Server) Router() http.Handler {
	return s.router
}

// Start блокирует до остановки сервера.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server is starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown корректно останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
