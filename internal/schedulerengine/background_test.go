package schedulerengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
)

func TestReportWarnsAboutStrandedTasksAndDeadLetters(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := logging.NewFromZap(zap.New(core))

	cfg := &config.JudgeQueueCfg{MaxDeliveries: 1, DeadLetterLimit: 10}
	queue := judgequeue.NewJudgeQueueService(cfg, nil, logging.NewNopLogger())
	defer queue.Close()
	reporter := NewQueueReporter(cfg, queue, func() int { return 0 }, logger)

	ctx := context.Background()
	require.NoError(t, queue.PushTask(ctx, &domain.Task{ID: "a"}, false))
	require.NoError(t, queue.PushTask(ctx, &domain.Task{ID: "b"}, false))
	task, err := queue.ConsumeTask(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.PushTask(ctx, task, true))

	stats := reporter.Report()
	assert.Equal(t, domain.QueueStats{Backlog: 1, DeadLetters: 1}, stats)
	assert.Equal(t, 1, logs.FilterMessage("New dead lettered tasks").Len())
	assert.Equal(t, 1, logs.FilterMessage("Tasks are waiting but no judge is connected").Len())

	reporter.Report()
	assert.Equal(t, 1, logs.FilterMessage("New dead lettered tasks").Len(), "only growth is reported")
}

func TestStartStopsWithContext(t *testing.T) {
	cfg := &config.JudgeQueueCfg{ReportInterval: 5 * time.Millisecond}
	queue := judgequeue.NewJudgeQueueService(cfg, nil, logging.NewNopLogger())
	defer queue.Close()
	reporter := NewQueueReporter(cfg, queue, nil, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	reporter.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		reporter.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop")
	}
}
