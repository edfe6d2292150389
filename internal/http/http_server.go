package http

// this is entry point of the admin http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgeclient"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/gateway/connectionmanager"
	"gitlab.com/judge-dispatch.net/internal/handlers"
	"gitlab.com/judge-dispatch.net/internal/handlers/judgeclients"
	"gitlab.com/judge-dispatch.net/internal/handlers/tasks"
)

type ServiceProvider struct {
	judgeClientService judgeclient.IJudgeClientService
	queueService       judgequeue.IJudgeQueueService
	jwtService         primary.JWTService
	connectionMgr      *connectionmanager.ConnectionManager
}

func NewServiceProvider(
	judgeClientService judgeclient.IJudgeClientService,
	queueService judgequeue.IJudgeQueueService,
	jwtService primary.JWTService,
	connectionMgr *connectionmanager.ConnectionManager,
) *ServiceProvider {
	return &ServiceProvider{
		judgeClientService: judgeClientService,
		queueService:       queueService,
		jwtService:         jwtService,
		connectionMgr:      connectionMgr,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(handlers.New(s.ServiceProvider.jwtService, s.logger).JWTMiddleware)
	judgeclients.
		NewJudgeClientHandler(s.ServiceProvider.judgeClientService, s.logger).
		RegisterRoutes(api)
	tasks.
		NewTaskHandler(s.ServiceProvider.queueService, s.logger).
		RegisterRoutes(api)

	s.router = r
	return nil
}

// Handler returns the initialised router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	connections := 0
	if s.ServiceProvider.connectionMgr != nil {
		connections = s.ServiceProvider.connectionMgr.Count()
	}
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{
		"service":          s.ServiceName,
		"status":           "ok",
		"judgeConnections": connections,
		"queue":            s.ServiceProvider.queueService.Stats(),
	})
}

func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
