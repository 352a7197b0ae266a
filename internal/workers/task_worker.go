package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"brashlens-backend/internal/common/logger"
	"brashlens-backend/internal/domain/task"
	"brashlens-backend/internal/metrics"
	"brashlens-backend/internal/service/tasks"
)

// ErrTimeLimitExceeded is recorded when a task runs past the hard limit.
var ErrTimeLimitExceeded = errors.New("task exceeded time limit")

type Options struct {
	Consumer      string
	TimeLimit     time.Duration
	SoftTimeLimit time.Duration
	// Block is how long XREADGROUP waits for new entries; negative means do not block.
	Block time.Duration
	// ClaimIdle is the idle time after which another consumer's pending entry is taken over.
	ClaimIdle time.Duration
}

// TaskWorker consumes the task stream through a consumer group.
// A message is acknowledged only after its result is stored, so a crash re-delivers it.
type TaskWorker struct {
	rdb      redis.Cmdable
	registry *tasks.Registry
	results  *tasks.Dispatcher
	metrics  *metrics.Registry
	opts     Options
	log      zerolog.Logger
}

func NewTaskWorker(rdb redis.Cmdable, registry *tasks.Registry, results *tasks.Dispatcher, m *metrics.Registry, opts Options) *TaskWorker {
	if opts.Consumer == "" {
		opts.Consumer = "worker-1"
	}
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = 30 * time.Minute
	}
	if opts.SoftTimeLimit <= 0 || opts.SoftTimeLimit > opts.TimeLimit {
		opts.SoftTimeLimit = opts.TimeLimit
	}
	if opts.Block == 0 {
		opts.Block = 5 * time.Second
	}
	if opts.ClaimIdle <= 0 {
		opts.ClaimIdle = opts.TimeLimit + time.Minute
	}
	return &TaskWorker{
		rdb:      rdb,
		registry: registry,
		results:  results,
		metrics:  m,
		opts:     opts,
		log:      logger.Component("task_worker").With().Str("consumer", opts.Consumer).Logger(),
	}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (w *TaskWorker) EnsureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, tasks.StreamKey, tasks.ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Start begins listening to the task stream until ctx is cancelled.
func (w *TaskWorker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return err
	}
	w.log.Info().Strs("tasks", w.registry.Names()).Msg("Starting task worker")

	lastClaim := time.Time{}
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping task worker")
			return nil
		default:
		}

		if time.Since(lastClaim) > w.opts.ClaimIdle/2 {
			if n, err := w.Reclaim(ctx); err != nil {
				w.log.Warn().Err(err).Msg("Reclaim of stale entries failed")
			} else if n > 0 {
				w.log.Info().Int("count", n).Msg("Reclaimed stale entries")
			}
			lastClaim = time.Now()
		}

		if _, err := w.ProcessBatch(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Error reading from stream")
			time.Sleep(time.Second) // backoff on error
		}
	}
}

// ProcessBatch reads and runs one batch of new entries. It returns the number handled.
func (w *TaskWorker) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    tasks.ConsumerGroup,
		Consumer: w.opts.Consumer,
		Streams:  []string{tasks.StreamKey, ">"},
		Count:    1,
		Block:    w.opts.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	handled := 0
	for _, stream := range entries {
		for _, msg := range stream.Messages {
			if w.handle(ctx, msg) {
				handled++
			}
		}
	}
	return handled, nil
}

// Reclaim takes over entries left pending by a dead consumer and runs them.
func (w *TaskWorker) Reclaim(ctx context.Context) (int, error) {
	msgs, _, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   tasks.StreamKey,
		Group:    tasks.ConsumerGroup,
		Consumer: w.opts.Consumer,
		MinIdle:  w.opts.ClaimIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	handled := 0
	for _, msg := range msgs {
		if w.handle(ctx, msg) {
			handled++
		}
	}
	return handled, nil
}

// handle runs one message and acknowledges it once the outcome is stored.
func (w *TaskWorker) handle(ctx context.Context, msg redis.XMessage) bool {
	m, err := decodeMessage(msg)
	if err != nil {
		w.log.Error().Err(err).Str("entry", msg.ID).Msg("Dropping malformed task entry")
		w.ack(ctx, msg.ID)
		return false
	}
	log := w.log.With().Str("task_id", m.ID).Str("task", m.Name).Logger()

	h, ok := w.registry.Lookup(m.Name)
	if !ok {
		log.Error().Msg("Unknown task")
		if err := w.results.Fail(ctx, m.ID, fmt.Errorf("unknown task %q", m.Name)); err != nil {
			log.Error().Err(err).Msg("Failed to store task failure")
			return false
		}
		w.record(m.Name, task.StatusFailure)
		w.ack(ctx, msg.ID)
		return true
	}

	if err := w.results.MarkStarted(ctx, m.ID, m.Name); err != nil {
		log.Warn().Err(err).Msg("Failed to mark task started")
	}

	start := time.Now()
	result, runErr := w.run(ctx, log, h, m.Args)
	if ctx.Err() != nil && !errors.Is(runErr, ErrTimeLimitExceeded) {
		// Shutdown mid-task: leave the entry pending for redelivery.
		log.Warn().Msg("Task interrupted by shutdown")
		return false
	}

	status := task.StatusSuccess
	if runErr != nil {
		status = task.StatusFailure
		err = w.results.Fail(ctx, m.ID, runErr)
	} else {
		err = w.results.Complete(ctx, m.ID, result)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to store task result")
		return false
	}

	w.record(m.Name, status)
	w.ack(ctx, msg.ID)

	if runErr != nil {
		log.Error().Err(runErr).Dur("duration", time.Since(start)).Msg("Task failed")
	} else {
		log.Info().Dur("duration", time.Since(start)).Msg("Task succeeded")
	}
	return true
}

type outcome struct {
	result interface{}
	err    error
}

// run executes h under the hard time limit and logs a warning at the soft one.
func (w *TaskWorker) run(ctx context.Context, log zerolog.Logger, h tasks.Handler, args json.RawMessage) (interface{}, error) {
	runCtx, cancel := context.WithTimeout(ctx, w.opts.TimeLimit)
	defer cancel()

	soft := time.AfterFunc(w.opts.SoftTimeLimit, func() {
		log.Warn().Dur("soft_time_limit", w.opts.SoftTimeLimit).Msg("Task passed soft time limit")
	})
	defer soft.Stop()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		res, err := h(runCtx, args)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeLimitExceeded
		}
		return o.result, o.err
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeLimitExceeded
		}
		return nil, runCtx.Err()
	}
}

func (w *TaskWorker) ack(ctx context.Context, entryID string) {
	if err := w.rdb.XAck(ctx, tasks.StreamKey, tasks.ConsumerGroup, entryID).Err(); err != nil {
		w.log.Error().Err(err).Str("entry", entryID).Msg("Failed to acknowledge entry")
	}
}

func (w *TaskWorker) record(name string, status task.Status) {
	if w.metrics != nil {
		w.metrics.TaskProcessed(name, string(status))
	}
}

func decodeMessage(msg redis.XMessage) (task.Message, error) {
	var m task.Message
	id, ok := msg.Values["id"].(string)
	if !ok || id == "" {
		return m, fmt.Errorf("missing id")
	}
	name, ok := msg.Values["name"].(string)
	if !ok || name == "" {
		return m, fmt.Errorf("missing name")
	}
	args, _ := msg.Values["args"].(string)
	if args == "" {
		args = "{}"
	}
	return task.Message{ID: id, Name: name, Args: json.RawMessage(args)}, nil
}
