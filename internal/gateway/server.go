package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgeclient"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/gateway/connectionmanager"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
	"gitlab.com/judge-dispatch.net/internal/gateway/handlers"
	"gitlab.com/judge-dispatch.net/internal/gateway/publishers"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
	"gitlab.com/judge-dispatch.net/internal/tracing"
)

// GatewayServer accepts judge websocket connections and runs each one through
// handshake, ready, event handling and teardown.
type GatewayServer struct {
	address          string
	path             string
	authFailureGrace time.Duration
	cfg              *config.GatewayCfg

	judgeClientService judgeclient.IJudgeClientService
	queueService       judgequeue.IJudgeQueueService
	fileService        secondary.FileService
	connectionMgr      *connectionmanager.ConnectionManager
	logger             primary.Logger

	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
	handlers   map[string]primary.EventHandler
	publisher  primary.TaskPublisher
}

// GatewayServerOption configures a GatewayServer
type GatewayServerOption func(*GatewayServer)

// WithAddress sets the listen address
func WithAddress(address string) GatewayServerOption {
	return func(s *GatewayServer) {
		s.address = address
	}
}

// WithPath sets the websocket route
func WithPath(path string) GatewayServerOption {
	return func(s *GatewayServer) {
		s.path = path
	}
}

// WithAuthFailureGrace sets how long a rejected connection stays open so it can read authenticationFailed
func WithAuthFailureGrace(grace time.Duration) GatewayServerOption {
	return func(s *GatewayServer) {
		s.authFailureGrace = grace
	}
}

// NewGatewayServer creates a new gateway. connectionMgr is shared with whoever needs to look up live connections.
func NewGatewayServer(
	cfg *config.GatewayCfg,
	judgeClientService judgeclient.IJudgeClientService,
	queueService judgequeue.IJudgeQueueService,
	fileService secondary.FileService,
	connectionMgr *connectionmanager.ConnectionManager,
	logger primary.Logger,
	options ...GatewayServerOption,
) *GatewayServer {
	server := &GatewayServer{
		address:            cfg.Address,
		path:               cfg.Path,
		authFailureGrace:   cfg.AuthFailureGrace,
		cfg:                cfg,
		judgeClientService: judgeClientService,
		queueService:       queueService,
		fileService:        fileService,
		connectionMgr:      connectionMgr,
		logger:             logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// judges are not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	for _, option := range options {
		option(server)
	}

	server.setupEventHandlers()

	return server
}

func (s *GatewayServer) setupEventHandlers() {
	s.publisher = publishers.NewTaskPublisher(s.queueService, s.logger)
	s.handlers = map[string]primary.EventHandler{
		defs.EventSystemInfo:   handlers.NewSystemInfoHandler(s.judgeClientService, s.logger),
		defs.EventRequestFiles: handlers.NewRequestFilesHandler(s.fileService, s.logger),
		defs.EventProgress:     handlers.NewProgressHandler(s.queueService, s.logger),
		defs.EventAck:          handlers.NewAckHandler(s.queueService, s.logger),
		defs.EventConsumeTask:  handlers.NewConsumeTaskHandler(s.queueService, s.judgeClientService, s.publisher, s.logger),
	}
}

// Handler returns the router serving the websocket route
func (s *GatewayServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(s.path, s.ServeWS).Methods(http.MethodGet)
	return router
}

// Start starts listening in the background
func (s *GatewayServer) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.Handler()}

	s.logger.Info("Judge gateway listening", "address", s.address, "path", s.path)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Judge gateway stopped", "error", err)
		}
	}()

	return nil
}

// Stop stops accepting connections and closes the live ones
func (s *GatewayServer) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.connectionMgr.CloseAll("server shutting down")
	return err
}

// DisconnectJudgeClient closes every live connection of a judge client
func (s *GatewayServer) DisconnectJudgeClient(judgeClientID int) {
	for _, state := range s.connectionMgr.ForJudgeClient(judgeClientID) {
		state.Close("judge client revoked")
	}
}

// ServeWS upgrades the request and runs the connection until it closes
func (s *GatewayServer) ServeWS(w http.ResponseWriter, r *http.Request) {
	key := defs.ParseCredential(r.URL.Query().Get("key"))
	if key == "" {
		key = defs.ParseCredential(r.Header.Get("Authorization"))
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "remoteAddr", r.RemoteAddr, "error", err)
		return
	}
	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}

	state := connectionmanager.NewConnectionState(uuid.New().String(), conn, s.logger)
	s.handleConnection(state, conn, key, remoteHost(r))
}

func (s *GatewayServer) handleConnection(state *connectionmanager.ConnectionState, conn *websocket.Conn, key, host string) {
	frames := make(chan defs.Frame, defs.InboundBufferSize)
	go s.readPump(state, conn, frames)

	client, ok := s.handshake(state, key, host)
	if !ok {
		return
	}

	s.connectionMgr.Register(state.ConnectionID(), state)
	defer s.teardown(state)

	if err := state.Emit(defs.EventReady, client.Name); err != nil {
		s.logger.Warn("Failed to send ready", "connectionId", state.ConnectionID(), "error", err)
		state.Close("ready failed")
	}
	s.logger.Info("Judge client connected", "judgeClientId", client.ID, "name", client.Name, "connectionId", state.ConnectionID())

	go s.keepAlive(state)

	for frame := range frames {
		s.dispatch(state, frame)
	}
}

// handshake authenticates the connection and begins its session. It returns false when
// the connection must not proceed; in that case nothing is registered.
func (s *GatewayServer) handshake(state *connectionmanager.ConnectionState, key, host string) (*domain.JudgeClient, bool) {
	ctx, span := tracing.StartSpan(context.Background(), "judge.handshake", trace.SpanKindServer,
		attribute.String("connectionId", state.ConnectionID()),
	)
	var spanErr error
	defer func() { tracing.EndSpan(span, spanErr) }()

	client, err := s.judgeClientService.FindByKey(ctx, key)
	if state.IsClosed() {
		s.logger.Debug("Connection closed during authentication", "connectionId", state.ConnectionID())
		spanErr = &errs.StaleConnectionError{ConnectionID: state.ConnectionID(), Reason: "closed during authentication"}
		return nil, false
	}
	if err != nil {
		s.logger.Error("Failed to look up judge client", "connectionId", state.ConnectionID(), "error", err)
		spanErr = fmt.Errorf("%w: %w", errs.ErrAuthenticationFailure, err)
		s.rejectConnection(state)
		return nil, false
	}
	if err := s.authenticate(client, host); err != nil {
		s.logger.Warn("Judge client authentication failed", "connectionId", state.ConnectionID(), "host", host, "error", err)
		spanErr = err
		s.rejectConnection(state)
		return nil, false
	}

	state.Bind(client)
	span.SetAttributes(attribute.Int("judgeClientId", client.ID))

	// a session bound to a later connection takes over; the old one fails its next liveness check
	if err := s.judgeClientService.BeginSession(ctx, client, state.ConnectionID()); err != nil {
		s.logger.Error("Failed to begin session", "judgeClientId", client.ID, "error", err)
		spanErr = err
		state.Close("session unavailable")
		return nil, false
	}

	if state.IsClosed() {
		s.logger.Info("Connection closed while beginning session", "judgeClientId", client.ID, "connectionId", state.ConnectionID())
		if err := s.judgeClientService.ReleaseSession(context.Background(), client, state.ConnectionID()); err != nil {
			s.logger.Error("Failed to release session", "judgeClientId", client.ID, "error", err)
		}
		spanErr = &errs.StaleConnectionError{ConnectionID: state.ConnectionID(), Reason: "closed while beginning session"}
		return nil, false
	}

	return client, true
}

// authenticate decides whether a looked up client may connect from host
func (s *GatewayServer) authenticate(client *domain.JudgeClient, host string) error {
	if client == nil {
		return errs.ErrInvalidCredentials
	}
	if s.cfg.EnforceAllowedHosts && !client.AllowsHost(host) {
		return fmt.Errorf("%w: %s", errs.ErrHostNotAllowed, host)
	}
	return nil
}

func (s *GatewayServer) rejectConnection(state *connectionmanager.ConnectionState) {
	if err := state.Emit(defs.EventAuthenticationFailed); err != nil {
		s.logger.Debug("Failed to send authenticationFailed", "connectionId", state.ConnectionID(), "error", err)
	}
	state.CloseAfter(s.authFailureGrace, "authentication failed")
}

// teardown unregisters the connection, releases its session and requeues what it still held
func (s *GatewayServer) teardown(state *connectionmanager.ConnectionState) {
	state.Teardown(func() {
		state.Close("disconnected")
		s.connectionMgr.Unregister(state.ConnectionID())

		client := state.JudgeClient()
		if client == nil {
			return
		}

		ctx := context.Background()
		if err := s.judgeClientService.ReleaseSession(ctx, client, state.ConnectionID()); err != nil {
			s.logger.Error("Failed to release session", "judgeClientId", client.ID, "error", err)
		}

		tasks := state.Drain()
		for _, task := range tasks {
			if err := s.queueService.PushTask(ctx, task, true); err != nil {
				s.logger.Error("Failed to requeue task", "taskId", task.ID, "error", err)
			}
		}

		s.logger.Info("Judge client disconnected",
			"judgeClientId", client.ID, "connectionId", state.ConnectionID(), "requeued", len(tasks))
	})
}

func (s *GatewayServer) dispatch(state *connectionmanager.ConnectionState, frame defs.Frame) {
	peer, ok := s.connectionMgr.Lookup(state.ConnectionID())
	if !ok {
		err := &errs.UnknownConnectionError{ConnectionID: state.ConnectionID(), Event: frame.Event}
		s.logger.Warn("Ignoring event", "error", err)
		return
	}

	handler, exists := s.handlers[frame.Event]
	if !exists {
		s.logger.Warn("Unknown event", "event", frame.Event, "connectionId", peer.ConnectionID())
		peer.EmitError(defs.CodeUnknownEvent, fmt.Sprintf("Unknown event: %s", frame.Event))
		return
	}

	if err := handler.HandleEvent(peer.Context(), peer, frame.ID, frame.Args); err != nil {
		s.logger.Error("Error handling event", "event", frame.Event, "connectionId", peer.ConnectionID(), "error", err)
	}
}

// readPump feeds decoded frames to the connection loop until the socket fails
func (s *GatewayServer) readPump(state *connectionmanager.ConnectionState, conn *websocket.Conn, frames chan<- defs.Frame) {
	defer close(frames)
	defer state.Close("connection closed")

	pongWait := s.pongWait()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !state.IsClosed() {
				s.logger.Debug("Websocket read failed", "connectionId", state.ConnectionID(), "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame defs.Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			state.EmitError(defs.CodeMalformedFrame, "Malformed frame")
			continue
		}

		select {
		case frames <- frame:
		case <-state.Context().Done():
			return
		}
	}
}

func (s *GatewayServer) keepAlive(state *connectionmanager.ConnectionState) {
	if s.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-state.Context().Done():
			return
		case <-ticker.C:
			if err := state.Ping(); err != nil {
				state.Close("ping failed")
				return
			}
		}
	}
}

func (s *GatewayServer) pongWait() time.Duration {
	if s.cfg.PingInterval <= 0 {
		return 24 * time.Hour
	}
	return 2 * s.cfg.PingInterval
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
