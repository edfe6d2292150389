package connectionmanager

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
)

var _ primary.Peer = (*ConnectionState)(nil)

type inFlightTask struct {
	deliveryID uint64
	task       *domain.Task
}

// ConnectionState is the server side of one judge websocket
type ConnectionState struct {
	connectionID string
	conn         *websocket.Conn
	logger       primary.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	mu           sync.Mutex
	judgeClient  *domain.JudgeClient
	inFlight     []inFlightTask
	nextDelivery uint64
	draining     bool

	closeOnce    sync.Once
	teardownOnce sync.Once
}

// NewConnectionState wraps an upgraded websocket
func NewConnectionState(connectionID string, conn *websocket.Conn, logger primary.Logger) *ConnectionState {
	ctx, cancel := context.WithCancel(context.Background())
	return &ConnectionState{
		connectionID: connectionID,
		conn:         conn,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *ConnectionState) ConnectionID() string {
	return s.connectionID
}

// Bind attaches the authenticated judge client
func (s *ConnectionState) Bind(client *domain.JudgeClient) {
	s.mu.Lock()
	s.judgeClient = client
	s.mu.Unlock()
}

func (s *ConnectionState) JudgeClient() *domain.JudgeClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.judgeClient
}

func (s *ConnectionState) Context() context.Context {
	return s.ctx
}

// IsClosed reports whether Close ran, locally or because the peer went away
func (s *ConnectionState) IsClosed() bool {
	return s.ctx.Err() != nil
}

func (s *ConnectionState) Emit(event string, args ...interface{}) error {
	return s.write(defs.Frame{Event: event, Args: args})
}

func (s *ConnectionState) Request(event string, id uint64, args ...interface{}) error {
	return s.write(defs.Frame{Event: event, ID: id, Args: args})
}

func (s *ConnectionState) Reply(id uint64, args ...interface{}) error {
	return s.write(defs.Frame{Event: defs.EventAck, ID: id, Args: args})
}

// EmitError sends an error event; failures are ignored since the connection may be closing
func (s *ConnectionState) EmitError(code int, message string) {
	_ = s.Emit(defs.EventError, defs.ErrorData{Code: code, Message: message})
}

func (s *ConnectionState) write(frame defs.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(defs.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

// Ping sends a websocket ping control frame
func (s *ConnectionState) Ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defs.WriteTimeout))
}

func (s *ConnectionState) Track(task *domain.Task) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draining {
		return 0, false
	}
	s.nextDelivery++
	s.inFlight = append(s.inFlight, inFlightTask{deliveryID: s.nextDelivery, task: task})
	return s.nextDelivery, true
}

func (s *ConnectionState) Acknowledge(deliveryID uint64) (*domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.inFlight {
		if entry.deliveryID == deliveryID {
			s.inFlight = append(s.inFlight[:i], s.inFlight[i+1:]...)
			return entry.task, true
		}
	}
	return nil, false
}

// InFlight returns the unacknowledged tasks in delivery order
func (s *ConnectionState) InFlight() []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*domain.Task, 0, len(s.inFlight))
	for _, entry := range s.inFlight {
		tasks = append(tasks, entry.task)
	}
	return tasks
}

// Drain empties the in-flight set and refuses further Track calls
func (s *ConnectionState) Drain() []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draining = true
	tasks := make([]*domain.Task, 0, len(s.inFlight))
	for _, entry := range s.inFlight {
		tasks = append(tasks, entry.task)
	}
	s.inFlight = nil
	return tasks
}

// Close cancels the connection context and closes the socket. Only the first call has an effect.
func (s *ConnectionState) Close(reason string) {
	s.closeOnce.Do(func() {
		s.cancel()

		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug("Failed to close websocket", "connectionId", s.connectionID, "error", err)
		}
		s.logger.Debug("Connection closed", "connectionId", s.connectionID, "reason", reason)
	})
}

// CloseAfter closes the connection once delay elapsed
func (s *ConnectionState) CloseAfter(delay time.Duration, reason string) {
	time.AfterFunc(delay, func() { s.Close(reason) })
}

// Teardown runs fn at most once per connection
func (s *ConnectionState) Teardown(fn func()) {
	s.teardownOnce.Do(fn)
}
