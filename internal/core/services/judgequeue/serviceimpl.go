package judgequeue

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	csmap "github.com/mhmtszr/concurrent-swiss-map"

	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

var _ IJudgeQueueService = (*JudgeQueueService)(nil)

// JudgeQueueService is an in-process FIFO with a priority class for requeued tasks.
// Waiting consumers are served in arrival order.
type JudgeQueueService struct {
	mu       sync.Mutex
	requeued []*domain.Task
	backlog  []*domain.Task
	queued   map[string]struct{}
	waiters  *list.List // of chan *domain.Task
	// hand-outs per task id and whether the last one came from the requeue class
	deliveries  map[string]int
	origins     map[string]bool
	deadLetters []domain.DeadLetter
	closed      bool

	taskSinks     *csmap.CsMap[string, ProgressSink]
	typeReceivers *csmap.CsMap[string, ProgressSink]

	journal secondary.TaskJournal
	cfg     *config.JudgeQueueCfg
	logger  primary.Logger
	now     func() time.Time
}

// NewJudgeQueueService creates the queue. journal may be nil for a purely in-memory queue.
func NewJudgeQueueService(cfg *config.JudgeQueueCfg, journal secondary.TaskJournal, logger primary.Logger) *JudgeQueueService {
	return &JudgeQueueService{
		queued:        make(map[string]struct{}),
		waiters:       list.New(),
		deliveries:    make(map[string]int),
		origins:       make(map[string]bool),
		taskSinks:     csmap.Create[string, ProgressSink](),
		typeReceivers: csmap.Create[string, ProgressSink](),
		journal:       journal,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// PushTask with atFront is the requeue of a task that already went through SubmitTask,
// so its journal record is in place. A plain push is a submission.
func (s *JudgeQueueService) PushTask(ctx context.Context, task *domain.Task, atFront bool) error {
	if task == nil || task.ID == "" {
		return errs.ErrInvalidTask
	}
	if !atFront {
		return s.SubmitTask(ctx, task, false)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errs.ErrQueueClosed
	}
	if _, ok := s.queued[task.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("task %s is already queued: %w", task.ID, errs.ErrDuplicateTask)
	}

	if s.cfg.MaxDeliveries > 0 && s.deliveries[task.ID] >= s.cfg.MaxDeliveries {
		letter := s.deadLetterLocked(task, fmt.Sprintf("delivered %d times without acknowledgement", s.deliveries[task.ID]))
		s.mu.Unlock()
		s.onDeadLettered(ctx, letter)
		return nil
	}

	s.insertLocked(task, true)
	s.dispatchLocked()
	s.mu.Unlock()

	s.logger.Debug("Task requeued", "taskId", task.ID, "type", task.Type)
	return nil
}

// SubmitTask adds a new task. An id that is queued, in flight or dead lettered is refused.
func (s *JudgeQueueService) SubmitTask(ctx context.Context, task *domain.Task, atFront bool) error {
	if task == nil || task.ID == "" {
		return errs.ErrInvalidTask
	}

	s.mu.Lock()
	err := s.admitLocked(task.ID)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.journal != nil {
		if err := s.journal.Save(ctx, task); err != nil {
			return fmt.Errorf("failed to push task %s: %w", task.ID, err)
		}
	}

	s.mu.Lock()
	if err := s.admitLocked(task.ID); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errs.ErrQueueClosed) {
			s.forget(ctx, task.ID)
		}
		return err
	}
	s.insertLocked(task, atFront)
	s.dispatchLocked()
	s.mu.Unlock()

	s.logger.Debug("Task pushed", "taskId", task.ID, "type", task.Type, "atFront", atFront)
	return nil
}

func (s *JudgeQueueService) admitLocked(taskID string) error {
	if s.closed {
		return errs.ErrQueueClosed
	}
	if _, ok := s.queued[taskID]; ok {
		return fmt.Errorf("task %s is already queued: %w", taskID, errs.ErrDuplicateTask)
	}
	if s.deliveries[taskID] > 0 {
		return fmt.Errorf("task %s is in flight: %w", taskID, errs.ErrDuplicateTask)
	}
	for _, letter := range s.deadLetters {
		if letter.Task.ID == taskID {
			return fmt.Errorf("task %s is dead lettered: %w", taskID, errs.ErrDuplicateTask)
		}
	}
	return nil
}

func (s *JudgeQueueService) EnqueueTask(ctx context.Context, task *domain.Task, sink ProgressSink) error {
	if task == nil || task.ID == "" {
		return errs.ErrInvalidTask
	}
	// a duplicate must not replace the sink of the task already holding the id
	s.mu.Lock()
	err := s.admitLocked(task.ID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if sink != nil {
		s.taskSinks.Store(task.ID, sink)
	}
	if err := s.SubmitTask(ctx, task, false); err != nil {
		if !errors.Is(err, errs.ErrDuplicateTask) {
			s.taskSinks.Delete(task.ID)
		}
		return err
	}
	return nil
}

// ReturnTask gives back a handed out task that never reached a worker. The hand-out is
// not counted and the task goes back to the head of the class it was taken from.
func (s *JudgeQueueService) ReturnTask(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return errs.ErrInvalidTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.ErrQueueClosed
	}
	if _, ok := s.queued[task.ID]; ok {
		return fmt.Errorf("task %s is already queued: %w", task.ID, errs.ErrDuplicateTask)
	}
	s.returnLocked(task)
	s.dispatchLocked()
	return nil
}

func (s *JudgeQueueService) insertLocked(task *domain.Task, atFront bool) {
	s.queued[task.ID] = struct{}{}
	delete(s.origins, task.ID)
	if atFront {
		s.requeued = append(s.requeued, task)
	} else {
		s.backlog = append(s.backlog, task)
	}
}

func (s *JudgeQueueService) returnLocked(task *domain.Task) {
	fromRequeue := s.origins[task.ID]
	s.unCountLocked(task.ID)
	delete(s.origins, task.ID)
	s.queued[task.ID] = struct{}{}
	if fromRequeue {
		s.requeued = append([]*domain.Task{task}, s.requeued...)
	} else {
		s.backlog = append([]*domain.Task{task}, s.backlog...)
	}
}

// popLocked takes the next task, requeued ones first, and counts the hand-out
func (s *JudgeQueueService) popLocked() *domain.Task {
	var (
		task        *domain.Task
		fromRequeue bool
	)
	switch {
	case len(s.requeued) > 0:
		task, fromRequeue = s.requeued[0], true
		s.requeued[0] = nil
		s.requeued = s.requeued[1:]
	case len(s.backlog) > 0:
		task = s.backlog[0]
		s.backlog[0] = nil
		s.backlog = s.backlog[1:]
	default:
		return nil
	}
	delete(s.queued, task.ID)
	s.deliveries[task.ID]++
	s.origins[task.ID] = fromRequeue
	return task
}

// dispatchLocked hands pending tasks to waiting consumers in arrival order
func (s *JudgeQueueService) dispatchLocked() {
	for s.waiters.Len() > 0 {
		task := s.popLocked()
		if task == nil {
			return
		}
		front := s.waiters.Front()
		s.waiters.Remove(front)
		// buffered, never blocks
		front.Value.(chan *domain.Task) <- task
	}
}

func (s *JudgeQueueService) ConsumeTask(ctx context.Context) (*domain.Task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errs.ErrQueueClosed
	}
	if task := s.popLocked(); task != nil {
		s.mu.Unlock()
		return task, nil
	}

	ch := make(chan *domain.Task, 1)
	elem := s.waiters.PushBack(ch)
	s.mu.Unlock()

	select {
	case task, ok := <-ch:
		if !ok {
			return nil, errs.ErrQueueClosed
		}
		return task, nil
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case task, ok := <-ch:
			if ok {
				// handed over while we were giving up: it was next in line, keep it there
				s.returnLocked(task)
				s.dispatchLocked()
			}
		default:
			s.waiters.Remove(elem)
		}
		return nil, ctx.Err()
	}
}

func (s *JudgeQueueService) unCountLocked(taskID string) {
	if s.deliveries[taskID] <= 1 {
		delete(s.deliveries, taskID)
		return
	}
	s.deliveries[taskID]--
}

func (s *JudgeQueueService) AcknowledgeTask(ctx context.Context, taskID string) {
	s.mu.Lock()
	delete(s.deliveries, taskID)
	delete(s.origins, taskID)
	s.mu.Unlock()

	s.forget(ctx, taskID)
}

// forget drops the journal record of a task that left the queue
func (s *JudgeQueueService) forget(ctx context.Context, taskID string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Remove(ctx, taskID); err != nil {
		s.logger.Warn("Failed to drop task from journal", "taskId", taskID, "error", err)
	}
}

func (s *JudgeQueueService) RegisterProgressReceiver(taskType string, sink ProgressSink) {
	s.typeReceivers.Store(taskType, sink)
}

func (s *JudgeQueueService) OnTaskProgress(ctx context.Context, meta domain.TaskMeta, progress json.RawMessage) {
	if sink, ok := s.taskSinks.Load(meta.TaskID); ok {
		if sink(ctx, meta, progress) {
			s.taskSinks.Delete(meta.TaskID)
		}
		return
	}
	if receiver, ok := s.typeReceivers.Load(meta.Type); ok {
		receiver(ctx, meta, progress)
		return
	}
	s.logger.Warn("Dropping progress of unknown task", "taskId", meta.TaskID, "type", meta.Type)
}

func (s *JudgeQueueService) deadLetterLocked(task *domain.Task, reason string) domain.DeadLetter {
	letter := domain.DeadLetter{
		Task:       task,
		Deliveries: s.deliveries[task.ID],
		Reason:     reason,
		At:         s.now(),
	}
	delete(s.deliveries, task.ID)
	delete(s.origins, task.ID)
	s.deadLetters = append(s.deadLetters, letter)
	if overflow := len(s.deadLetters) - s.cfg.DeadLetterLimit; s.cfg.DeadLetterLimit > 0 && overflow > 0 {
		s.deadLetters = append([]domain.DeadLetter(nil), s.deadLetters[overflow:]...)
	}
	return letter
}

func (s *JudgeQueueService) onDeadLettered(ctx context.Context, letter domain.DeadLetter) {
	s.logger.Warn("Task dead lettered", "taskId", letter.Task.ID, "type", letter.Task.Type,
		"deliveries", letter.Deliveries, "reason", letter.Reason)

	s.forget(ctx, letter.Task.ID)

	meta := letter.Task.Meta
	if meta.TaskID == "" {
		meta = domain.TaskMeta{TaskID: letter.Task.ID, Type: letter.Task.Type}
	}
	s.OnTaskProgress(ctx, meta, domain.DeadLetteredProgress)
}

func (s *JudgeQueueService) DeadLetters() []domain.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DeadLetter(nil), s.deadLetters...)
}

// RetryDeadLetter submits a dead lettered task again at the front with a fresh delivery count
func (s *JudgeQueueService) RetryDeadLetter(ctx context.Context, taskID string) error {
	s.mu.Lock()
	var letter *domain.DeadLetter
	for i := range s.deadLetters {
		if s.deadLetters[i].Task.ID == taskID {
			found := s.deadLetters[i]
			letter = &found
			s.deadLetters = append(s.deadLetters[:i], s.deadLetters[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if letter == nil {
		return errs.ErrDeadLetterNotFound
	}
	if err := s.SubmitTask(ctx, letter.Task, true); err != nil {
		if !errors.Is(err, errs.ErrDuplicateTask) {
			s.mu.Lock()
			s.deadLetters = append(s.deadLetters, *letter)
			s.mu.Unlock()
		}
		return err
	}
	return nil
}

func (s *JudgeQueueService) Stats() domain.QueueStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.QueueStats{
		Requeued:         len(s.requeued),
		Backlog:          len(s.backlog),
		WaitingConsumers: s.waiters.Len(),
		DeadLetters:      len(s.deadLetters),
	}
}

func (s *JudgeQueueService) Restore(ctx context.Context) (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	tasks, err := s.journal.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to restore judge queue: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errs.ErrQueueClosed
	}
	restored := 0
	for _, task := range tasks {
		if _, ok := s.queued[task.ID]; ok {
			continue
		}
		s.insertLocked(task, false)
		restored++
	}
	s.dispatchLocked()
	s.logger.Info("Judge queue restored", "tasks", restored)
	return restored, nil
}

// Close wakes every waiting consumer with ErrQueueClosed
func (s *JudgeQueueService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for e := s.waiters.Front(); e != nil; e = e.Next() {
		close(e.Value.(chan *domain.Task))
	}
	s.waiters.Init()
}
