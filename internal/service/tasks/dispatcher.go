package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "brashlens-backend/internal/common/errors"
	"brashlens-backend/internal/common/logger"
	"brashlens-backend/internal/domain/task"
)

const (
	StreamKey     = "tasks:queue"
	ConsumerGroup = "tasks:workers"

	recordPrefix = "task:"
)

// Dispatcher submits tasks to the Redis stream and keeps their records in Redis hashes.
type Dispatcher struct {
	rdb       redis.Cmdable
	registry  *Registry
	resultTTL time.Duration
}

func NewDispatcher(rdb redis.Cmdable, registry *Registry, resultTTL time.Duration) *Dispatcher {
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &Dispatcher{rdb: rdb, registry: registry, resultTTL: resultTTL}
}

func RecordKey(id string) string { return recordPrefix + id }

// Submit queues a registered task and returns its id.
func (d *Dispatcher) Submit(ctx context.Context, name string, args interface{}) (string, error) {
	if _, ok := d.registry.Lookup(name); !ok {
		return "", apperrors.NewValidationError("task", fmt.Sprintf("unknown task %q", name))
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return "", apperrors.NewValidationError("args", err.Error())
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	key := RecordKey(id)

	_, err = d.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"name", name,
			"status", string(task.StatusPending),
			"created_at", now,
			"updated_at", now,
		)
		p.Expire(ctx, key, d.resultTTL)
		p.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamKey,
			Values: map[string]interface{}{
				"id":   id,
				"name": name,
				"args": string(payload),
			},
		})
		return nil
	})
	if err != nil {
		return "", apperrors.NewTaskQueueError("submit task", err).WithContext("task", name)
	}

	logger.Info().Str("task_id", id).Str("task", name).Msg("Task submitted")
	return id, nil
}

// Status returns the task record. Unknown ids report PENDING.
func (d *Dispatcher) Status(ctx context.Context, id string) (*task.Record, error) {
	fields, err := d.rdb.HGetAll(ctx, RecordKey(id)).Result()
	if err != nil {
		return nil, apperrors.NewTaskQueueError("get task status", err).WithContext("task_id", id)
	}
	rec := &task.Record{ID: id, Status: task.StatusPending}
	if len(fields) == 0 {
		return rec, nil
	}

	rec.Name = fields["name"]
	if s := fields["status"]; s != "" {
		rec.Status = task.Status(s)
	}
	if r := fields["result"]; r != "" {
		rec.Result = json.RawMessage(r)
	}
	rec.Error = fields["error"]
	rec.CreatedAt = parseTime(fields["created_at"])
	rec.UpdatedAt = parseTime(fields["updated_at"])
	return rec, nil
}

// MarkStarted moves the record to STARTED.
func (d *Dispatcher) MarkStarted(ctx context.Context, id, name string) error {
	return d.write(ctx, id, "name", name, "status", string(task.StatusStarted))
}

// Complete stores the JSON result with SUCCESS.
func (d *Dispatcher) Complete(ctx context.Context, id string, result interface{}) error {
	b, err := json.Marshal(result)
	if err != nil {
		return d.Fail(ctx, id, fmt.Errorf("encode result: %w", err))
	}
	return d.write(ctx, id, "status", string(task.StatusSuccess), "result", string(b), "error", "")
}

// Fail stores the error text with FAILURE.
func (d *Dispatcher) Fail(ctx context.Context, id string, cause error) error {
	return d.write(ctx, id, "status", string(task.StatusFailure), "error", cause.Error())
}

func (d *Dispatcher) write(ctx context.Context, id string, values ...interface{}) error {
	key := RecordKey(id)
	values = append(values, "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	_, err := d.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, values...)
		p.Expire(ctx, key, d.resultTTL)
		return nil
	})
	return err
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
