package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/skillforge/backend/internal/models"
)

const (
	queueKey        = "tasks:queue"
	resultKeyPrefix = "tasks:result:"
)

// ErrTaskNotFound is returned for unknown or expired task ids.
var ErrTaskNotFound = errors.New("task not found")

// Broker is a Redis list queue with one result handle per task.
type Broker struct {
	rdb       redis.Cmdable
	resultTTL time.Duration
}

func NewBroker(rdb redis.Cmdable, resultTTL time.Duration) *Broker {
	return &Broker{rdb: rdb, resultTTL: resultTTL}
}

// Enqueue stores a pending result handle and pushes the task.
func (b *Broker) Enqueue(ctx context.Context, taskType string, userID int64, payload any) (*models.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	task := &models.Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		UserID:     userID,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	taskJSON, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	pending, err := json.Marshal(models.TaskResult{
		TaskID:     task.ID,
		Type:       task.Type,
		UserID:     userID,
		Status:     models.TaskPending,
		EnqueuedAt: task.EnqueuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	pipe := b.rdb.TxPipeline()
	pipe.Set(ctx, resultKeyPrefix+task.ID, pending, b.resultTTL)
	pipe.LPush(ctx, queueKey, taskJSON)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue task: %w", err)
	}
	return task, nil
}

// Dequeue blocks up to wait for the next task. It returns nil, nil on timeout.
func (b *Broker) Dequeue(ctx context.Context, wait time.Duration) (*models.Task, error) {
	res, err := b.rdb.BRPop(ctx, wait, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var task models.Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// Finish records the outcome of task. A non-nil runErr marks it failed.
func (b *Broker) Finish(ctx context.Context, task *models.Task, result any, runErr error) error {
	now := time.Now().UTC()
	tr := models.TaskResult{
		TaskID:     task.ID,
		Type:       task.Type,
		UserID:     task.UserID,
		Status:     models.TaskDone,
		EnqueuedAt: task.EnqueuedAt,
		FinishedAt: &now,
	}
	if runErr != nil {
		tr.Status = models.TaskFailed
		tr.Error = runErr.Error()
	} else if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			tr.Status = models.TaskFailed
			tr.Error = fmt.Sprintf("encode result: %v", err)
		} else {
			tr.Result = raw
		}
	}

	data, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	return b.rdb.Set(ctx, resultKeyPrefix+task.ID, data, b.resultTTL).Err()
}

func (b *Broker) Result(ctx context.Context, taskID string) (*models.TaskResult, error) {
	raw, err := b.rdb.Get(ctx, resultKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task result: %w", err)
	}

	var tr models.TaskResult
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("decode task result: %w", err)
	}
	return &tr, nil
}
