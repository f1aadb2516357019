package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	pollWait = 2 * time.Second

	// DefaultTaskTimeout bounds a single task run.
	DefaultTaskTimeout = 5 * time.Minute
)

// HandlerFunc runs one task and returns its JSON-encodable result.
type HandlerFunc func(ctx context.Context, task *models.Task) (any, error)

// Pool runs a fixed number of workers blocking on the broker queue.
type Pool struct {
	broker      *Broker
	handlers    map[string]HandlerFunc
	concurrency int
	taskTimeout time.Duration
	log         *logger.Logger
}

func NewPool(broker *Broker, concurrency int, log *logger.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		broker:      broker,
		handlers:    map[string]HandlerFunc{},
		concurrency: concurrency,
		taskTimeout: DefaultTaskTimeout,
		log:         log.With("component", "task_worker"),
	}
}

func (p *Pool) Register(taskType string, h HandlerFunc) {
	p.handlers[taskType] = h
}

// Run blocks until ctx is cancelled and every in-flight task has finished.
// A dequeued task is never abandoned: it runs detached from ctx, bounded by
// the task timeout.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info("starting task worker pool", "concurrency", p.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			p.runLoop(ctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) runLoop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			p.log.Info("worker loop stopped", "worker_id", workerID)
			return
		}

		task, err := p.broker.Dequeue(ctx, pollWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.log.Warn("dequeue failed", "worker_id", workerID, "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}
		if task == nil {
			continue
		}

		p.process(ctx, workerID, task)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, task *models.Task) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.taskTimeout)
	defer cancel()

	result, err := p.run(runCtx, task)
	if ferr := p.broker.Finish(context.WithoutCancel(ctx), task, result, err); ferr != nil {
		p.log.Error("store task result failed", "task_id", task.ID, "error", ferr)
	}

	if err != nil {
		p.log.Warn("task failed",
			"worker_id", workerID,
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err,
		)
		return
	}
	p.log.Info("task done",
		"worker_id", workerID,
		"task_id", task.ID,
		"task_type", task.Type,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (p *Pool) run(ctx context.Context, task *models.Task) (result any, err error) {
	h, ok := p.handlers[task.Type]
	if !ok {
		return nil, fmt.Errorf("no handler registered for task type %q", task.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("task handler panic", "task_id", task.ID, "task_type", task.Type, "panic", r)
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, task)
}
