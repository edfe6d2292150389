package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
)

type sentFrame struct {
	event string
	id    uint64
	args  []interface{}
}

// fakePeer records what handlers send
type fakePeer struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	client   *domain.JudgeClient
	sent     []sentFrame
	inFlight map[uint64]*domain.Task
	nextID   uint64
	closed   string
}

func newFakePeer() *fakePeer {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakePeer{
		ctx:      ctx,
		cancel:   cancel,
		client:   &domain.JudgeClient{ID: 1, Name: "judge-1"},
		inFlight: make(map[uint64]*domain.Task),
	}
}

func (p *fakePeer) ConnectionID() string             { return "conn-1" }
func (p *fakePeer) JudgeClient() *domain.JudgeClient { return p.client }
func (p *fakePeer) Context() context.Context         { return p.ctx }

func (p *fakePeer) Emit(event string, args ...interface{}) error {
	return p.Request(event, 0, args...)
}

func (p *fakePeer) Request(event string, id uint64, args ...interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentFrame{event: event, id: id, args: args})
	return nil
}

func (p *fakePeer) Reply(id uint64, args ...interface{}) error {
	return p.Request(defs.EventAck, id, args...)
}

func (p *fakePeer) Track(task *domain.Task) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.inFlight[p.nextID] = task
	return p.nextID, true
}

func (p *fakePeer) Acknowledge(id uint64) (*domain.Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.inFlight[id]
	delete(p.inFlight, id)
	return task, ok
}

func (p *fakePeer) Close(reason string) {
	p.mu.Lock()
	p.closed = reason
	p.mu.Unlock()
	p.cancel()
}

func (p *fakePeer) frames() []sentFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentFrame(nil), p.sent...)
}

type fakeFiles struct {
	fail string
}

func (f *fakeFiles) GetDownloadLink(ctx context.Context, fileID string, filename *string, ephemeral bool) (string, error) {
	if fileID == f.fail {
		return "", errors.New("storage down")
	}
	if !ephemeral || filename != nil {
		return "", errors.New("unexpected link options")
	}
	return "https://files/" + fileID, nil
}

func newQueue() *judgequeue.JudgeQueueService {
	return judgequeue.NewJudgeQueueService(&config.JudgeQueueCfg{MaxDeliveries: 3, DeadLetterLimit: 10}, nil, logging.NewNopLogger())
}

func TestRequestFilesReply(t *testing.T) {
	h := NewRequestFilesHandler(&fakeFiles{}, logging.NewNopLogger())
	peer := newFakePeer()

	require.NoError(t, h.HandleEvent(context.Background(), peer, 9, []interface{}{[]interface{}{"x", "y"}}))

	frames := peer.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, defs.EventAck, frames[0].event)
	assert.Equal(t, uint64(9), frames[0].id)
	assert.Equal(t, []interface{}{[]string{"https://files/x", "https://files/y"}}, frames[0].args)
}

func TestRequestFilesFailure(t *testing.T) {
	h := NewRequestFilesHandler(&fakeFiles{fail: "y"}, logging.NewNopLogger())
	peer := newFakePeer()

	err := h.HandleEvent(context.Background(), peer, 9, []interface{}{[]interface{}{"x", "y"}})
	assert.Error(t, err)

	frames := peer.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, defs.EventError, frames[0].event)
}

func TestRequestFilesEmptyList(t *testing.T) {
	h := NewRequestFilesHandler(&fakeFiles{}, logging.NewNopLogger())
	peer := newFakePeer()

	require.NoError(t, h.HandleEvent(context.Background(), peer, 2, nil))
	assert.Equal(t, []interface{}{[]string{}}, peer.frames()[0].args)
}

func TestAckHandler(t *testing.T) {
	queue := newQueue()
	defer queue.Close()
	h := NewAckHandler(queue, logging.NewNopLogger())
	peer := newFakePeer()

	id, _ := peer.Track(&domain.Task{ID: "7"})
	require.NoError(t, h.HandleEvent(context.Background(), peer, id, nil))
	_, stillTracked := peer.Acknowledge(id)
	assert.False(t, stillTracked)

	// unknown ids are ignored
	require.NoError(t, h.HandleEvent(context.Background(), peer, 42, nil))
}

func TestProgressHandlerRejectsMissingTaskID(t *testing.T) {
	queue := newQueue()
	defer queue.Close()
	h := NewProgressHandler(queue, logging.NewNopLogger())
	peer := newFakePeer()

	require.NoError(t, h.HandleEvent(context.Background(), peer, 0, []interface{}{map[string]interface{}{"type": "Submission"}, nil}))
	frames := peer.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, defs.EventError, frames[0].event)
	assert.Equal(t, defs.CodeInvalidProgress, frames[0].args[0].(defs.ErrorData).Code)
}

func TestProgressHandlerRoutesToTaskSink(t *testing.T) {
	queue := newQueue()
	defer queue.Close()
	h := NewProgressHandler(queue, logging.NewNopLogger())
	peer := newFakePeer()

	got := make(chan json.RawMessage, 1)
	task := &domain.Task{ID: "7", Type: "Submission", Meta: domain.TaskMeta{TaskID: "7", Type: "Submission"}}
	require.NoError(t, queue.EnqueueTask(context.Background(), task, func(ctx context.Context, meta domain.TaskMeta, progress json.RawMessage) bool {
		got <- progress
		return true
	}))

	require.NoError(t, h.HandleEvent(context.Background(), peer, 0, []interface{}{
		map[string]interface{}{"taskId": "7", "type": "Submission"},
		map[string]interface{}{"status": "Accepted"},
	}))

	select {
	case progress := <-got:
		assert.JSONEq(t, `{"status":"Accepted"}`, string(progress))
	case <-time.After(time.Second):
		t.Fatal("progress not delivered")
	}
}

func TestSystemInfoHandlerRejectsEmpty(t *testing.T) {
	h := NewSystemInfoHandler(nil, logging.NewNopLogger())
	peer := newFakePeer()

	assert.Error(t, h.HandleEvent(context.Background(), peer, 0, nil))
	assert.Equal(t, defs.EventError, peer.frames()[0].event)
}
