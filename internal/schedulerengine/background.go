package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
)

// QueueReporter periodically logs the judge queue depth and warns when dead letters pile up
type QueueReporter struct {
	QueueCfg     *config.JudgeQueueCfg
	queueService judgequeue.IJudgeQueueService
	connections  func() int
	logger       primary.Logger

	wg   sync.WaitGroup
	last domain.QueueStats
}

// NewQueueReporter creates a reporter. connections returns the number of live judge connections.
func NewQueueReporter(
	queueCfg *config.JudgeQueueCfg,
	queueService judgequeue.IJudgeQueueService,
	connections func() int,
	logger primary.Logger,
) *QueueReporter {
	return &QueueReporter{
		QueueCfg:     queueCfg,
		queueService: queueService,
		connections:  connections,
		logger:       logger,
	}
}

// Start runs the report loop until ctx is done
func (s *QueueReporter) Start(ctx context.Context) {
	if s.QueueCfg.ReportInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.QueueCfg.ReportInterval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Report()
			}
		}
	}()
}

// Wait blocks until the loop started by Start returned
func (s *QueueReporter) Wait() {
	s.wg.Wait()
}

// Report logs one snapshot
func (s *QueueReporter) Report() domain.QueueStats {
	stats := s.queueService.Stats()
	connections := 0
	if s.connections != nil {
		connections = s.connections()
	}

	s.logger.Info("Judge queue status",
		"requeued", stats.Requeued,
		"backlog", stats.Backlog,
		"waitingConsumers", stats.WaitingConsumers,
		"deadLetters", stats.DeadLetters,
		"judgeConnections", connections,
	)

	if stats.DeadLetters > s.last.DeadLetters {
		s.logger.Warn("New dead lettered tasks", "count", stats.DeadLetters-s.last.DeadLetters)
	}
	if stats.Requeued+stats.Backlog > 0 && connections == 0 {
		s.logger.Warn("Tasks are waiting but no judge is connected", "pending", stats.Requeued+stats.Backlog)
	}

	s.last = stats
	return stats
}
